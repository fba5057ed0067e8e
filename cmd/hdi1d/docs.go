package main

// General API documentation for swaggo. The served document lives in
// internal/httpapi/docs.
//
// @title           hdi1d API
// @version         1.0
// @description     HTTP API for HiDream-I1 image generation and model management.
//
// @contact.name   hdi1d maintainers
//
// @license.name   MIT
// @license.url    https://opensource.org/licenses/MIT
//
// @BasePath  /
//
// @schemes http
