package manager

import (
	"context"
	"time"
)

// Admit reserves a queue slot and then the single in-flight slot. Both waits
// are bounded by MaxWait. The returned release func must be called exactly
// once when the caller is done with the pipeline.
func (m *Manager) Admit(ctx context.Context) (func(), error) {
	m.mu.RLock()
	closing := m.closing
	m.mu.RUnlock()
	if closing {
		admissionRejects.WithLabelValues("shutdown").Inc()
		return func() {}, errTooBusy("shutting down")
	}
	if err := ctx.Err(); err != nil {
		return func() {}, err
	}

	timer := time.NewTimer(m.maxWait)
	defer timer.Stop()
	select {
	case m.queueCh <- struct{}{}:
	case <-ctx.Done():
		return func() {}, ctx.Err()
	case <-timer.C:
		admissionRejects.WithLabelValues("queue_full").Inc()
		return func() {}, errTooBusy("queue full")
	}

	acquired := false
	defer func() {
		if !acquired {
			<-m.queueCh
		}
	}()
	if err := ctx.Err(); err != nil {
		return func() {}, err
	}
	timer2 := time.NewTimer(m.maxWait)
	defer timer2.Stop()
	select {
	case m.genCh <- struct{}{}:
		acquired = true
		return func() { <-m.genCh; <-m.queueCh }, nil
	case <-ctx.Done():
		return func() {}, ctx.Err()
	case <-timer2.C:
		admissionRejects.WithLabelValues("wait_timeout").Inc()
		return func() {}, errTooBusy("timed out waiting for the generation slot")
	}
}
