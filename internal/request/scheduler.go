package request

import (
	"context"
	"log"
	"time"
)

// EmergencyScheduler periodically re-checks pending emergency requests
// against current stock.
type EmergencyScheduler struct {
	coordinator *Coordinator
	interval    time.Duration
	logger      *log.Logger
	stop        chan struct{}
	done        chan struct{}
}

func NewEmergencyScheduler(coordinator *Coordinator, interval time.Duration, logger *log.Logger) *EmergencyScheduler {
	return &EmergencyScheduler{
		coordinator: coordinator,
		interval:    interval,
		logger:      logger,
		stop:        make(chan struct{}),
		done:        make(chan struct{}),
	}
}

// Start runs the scan loop until Stop is called.
func (s *EmergencyScheduler) Start() {
	go func() {
		defer close(s.done)
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		s.logger.Printf("emergency scheduler started, interval %s", s.interval)
		for {
			select {
			case <-s.stop:
				return
			case <-ticker.C:
				ctx, cancel := context.WithTimeout(context.Background(), s.interval)
				if _, err := s.coordinator.ProcessEmergencyRequests(ctx); err != nil {
					s.logger.Printf("emergency scan failed: %v", err)
				}
				cancel()
			}
		}
	}()
}

// Stop halts the loop and waits for an in-flight scan to finish.
func (s *EmergencyScheduler) Stop() {
	close(s.stop)
	<-s.done
	s.logger.Println("emergency scheduler stopped")
}
