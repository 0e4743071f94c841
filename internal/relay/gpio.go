package relay

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/host/v3"
)

// GPIO drives a physical relay through a periph.io GPIO pin. When
// Config.HasDutyCycle() is true, GPIO runs a soft-PWM goroutine instead of
// following On/Off directly — grounded on the same ticker+mutex+stop-channel
// shape as a fixed-period refill loop.
type GPIO struct {
	name       string
	pin        gpio.PinIO
	activeHigh bool
	logger     *zap.Logger

	dutyCycle float64
	cycleTime time.Duration

	mu      sync.Mutex
	target  bool // logical on/off requested by the Manager
	current bool // physical pin state actually driven

	stop     chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// hostInitOnce guards periph.io's global host.Init(), which must run exactly
// once per process before any pin is looked up.
var hostInitOnce sync.Once
var hostInitErr error

// NewGPIO constructs a GPIO relay bound to cfg.Pin. Returns an error if the
// pin cannot be resolved (wrong hardware, permissions, or unknown name).
func NewGPIO(cfg Config, logger *zap.Logger) (*GPIO, error) {
	hostInitOnce.Do(func() {
		_, hostInitErr = host.Init()
	})
	if hostInitErr != nil {
		return nil, fmt.Errorf("relay %s: periph.io host init: %w", cfg.Name, hostInitErr)
	}

	pin := gpioreg.ByName(cfg.Pin)
	if pin == nil {
		return nil, fmt.Errorf("relay %s: unknown GPIO pin %q", cfg.Name, cfg.Pin)
	}

	g := &GPIO{
		name:       cfg.Name,
		pin:        pin,
		activeHigh: cfg.ActiveHigh,
		logger:     logger,
		dutyCycle:  cfg.DutyCycle,
		cycleTime:  time.Duration(cfg.CycleTime * float64(time.Second)),
		stop:       make(chan struct{}),
	}

	if err := g.drivePin(false); err != nil {
		return nil, fmt.Errorf("relay %s: initial de-energize: %w", cfg.Name, err)
	}

	if cfg.HasDutyCycle() {
		g.wg.Add(1)
		go g.dutyCycleLoop()
	}

	return g, nil
}

func (g *GPIO) Name() string { return g.name }

func (g *GPIO) drivePin(on bool) error {
	level := gpio.Low
	if on == g.activeHigh {
		level = gpio.High
	}
	if err := g.pin.Out(level); err != nil {
		return err
	}
	g.current = on
	return nil
}

func (g *GPIO) On(ctx context.Context) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.target = true
	if !(g.dutyCycle > 0 && g.dutyCycle < 1 && g.cycleTime > 0) {
		if err := g.drivePin(true); err != nil {
			return fmt.Errorf("relay %s: on: %w", g.name, err)
		}
	}
	return nil
}

func (g *GPIO) Off(ctx context.Context) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.target = false
	if err := g.drivePin(false); err != nil {
		return fmt.Errorf("relay %s: off: %w", g.name, err)
	}
	return nil
}

func (g *GPIO) IsOn() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.target
}

func (g *GPIO) IsOff() bool {
	return !g.IsOn()
}

// dutyCycleLoop energizes the pin for dutyCycle*cycleTime and de-energizes
// it for the remainder of each cycle, so long as On() has set target=true.
// It never runs faster than cycleTime, and it honors Off() immediately.
func (g *GPIO) dutyCycleLoop() {
	defer g.wg.Done()

	onDuration := time.Duration(g.dutyCycle * float64(g.cycleTime))
	offDuration := g.cycleTime - onDuration

	for {
		g.mu.Lock()
		wantOn := g.target
		g.mu.Unlock()

		if !wantOn {
			select {
			case <-time.After(50 * time.Millisecond):
				continue
			case <-g.stop:
				return
			}
		}

		g.mu.Lock()
		if err := g.drivePin(true); err != nil {
			g.logger.Warn("duty cycle energize failed", zap.String("relay", g.name), zap.Error(err))
		}
		g.mu.Unlock()

		select {
		case <-time.After(onDuration):
		case <-g.stop:
			_ = g.drivePin(false)
			return
		}

		g.mu.Lock()
		if err := g.drivePin(false); err != nil {
			g.logger.Warn("duty cycle de-energize failed", zap.String("relay", g.name), zap.Error(err))
		}
		g.mu.Unlock()

		select {
		case <-time.After(offDuration):
		case <-g.stop:
			return
		}
	}
}

func (g *GPIO) Shutdown(ctx context.Context) error {
	g.stopOnce.Do(func() {
		close(g.stop)
	})
	g.wg.Wait()

	g.mu.Lock()
	defer g.mu.Unlock()
	if err := g.drivePin(false); err != nil {
		return fmt.Errorf("relay %s: shutdown de-energize: %w", g.name, err)
	}
	return nil
}
