package monitor

// Subscriber handles event subscriptions.
type Subscriber struct {
	done            chan struct{}
	warmupStarted   func(WarmupStarted)
	warmupDone      func(WarmupDone)
	powerRefreshed  func(PowerRefreshed)
	refreshError    func(RefreshError)
	pollingStarted  func(PollingStarted)
	cycleCompleted  func(CycleCompleted)
	pollingShutdown func(PollingShutdown)
}

// OnWarmupStarted sets the handler for WarmupStarted events
func OnWarmupStarted(fn func(WarmupStarted)) func(*Subscriber) {
	return func(s *Subscriber) { s.warmupStarted = fn }
}

// OnWarmupDone sets the handler for WarmupDone events
func OnWarmupDone(fn func(WarmupDone)) func(*Subscriber) {
	return func(s *Subscriber) { s.warmupDone = fn }
}

// OnPowerRefreshed sets the handler for PowerRefreshed events
func OnPowerRefreshed(fn func(PowerRefreshed)) func(*Subscriber) {
	return func(s *Subscriber) { s.powerRefreshed = fn }
}

// OnRefreshError sets the handler for RefreshError events
func OnRefreshError(fn func(RefreshError)) func(*Subscriber) {
	return func(s *Subscriber) { s.refreshError = fn }
}

// OnPollingStarted sets the handler for PollingStarted events
func OnPollingStarted(fn func(PollingStarted)) func(*Subscriber) {
	return func(s *Subscriber) { s.pollingStarted = fn }
}

// OnCycleCompleted sets the handler for CycleCompleted events
func OnCycleCompleted(fn func(CycleCompleted)) func(*Subscriber) {
	return func(s *Subscriber) { s.cycleCompleted = fn }
}

// OnPollingShutdown sets the handler for PollingShutdown events
func OnPollingShutdown(fn func(PollingShutdown)) func(*Subscriber) {
	return func(s *Subscriber) { s.pollingShutdown = fn }
}

// NewSubscriber starts dispatching events to the configured handlers and returns a
// closer that blocks until the events channel is drained.
//
//	closer := monitor.NewSubscriber(events,
//	  monitor.OnCycleCompleted(func(e monitor.CycleCompleted) { ... }),
//	)
//	defer closer()
func NewSubscriber(events <-chan Event, opts ...func(*Subscriber)) func() {
	s := &Subscriber{
		done:            make(chan struct{}),
		warmupStarted:   func(WarmupStarted) {},
		warmupDone:      func(WarmupDone) {},
		powerRefreshed:  func(PowerRefreshed) {},
		refreshError:    func(RefreshError) {},
		pollingStarted:  func(PollingStarted) {},
		cycleCompleted:  func(CycleCompleted) {},
		pollingShutdown: func(PollingShutdown) {},
	}

	for _, opt := range opts {
		opt(s)
	}

	go func() {
		defer close(s.done)
		for ev := range events {
			switch e := ev.(type) {
			case WarmupStarted:
				s.warmupStarted(e)
			case WarmupDone:
				s.warmupDone(e)
			case PowerRefreshed:
				s.powerRefreshed(e)
			case RefreshError:
				s.refreshError(e)
			case PollingStarted:
				s.pollingStarted(e)
			case CycleCompleted:
				s.cycleCompleted(e)
			case PollingShutdown:
				s.pollingShutdown(e)
			}
		}
	}()

	return func() {
		<-s.done
	}
}
