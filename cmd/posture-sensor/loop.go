package main

import (
	"log/slog"
	"os"
	"syscall"
	"time"

	"github.com/sweeney/posture-sensor/internal/gpio"
	"github.com/sweeney/posture-sensor/internal/logic"
	"github.com/sweeney/posture-sensor/internal/metrics"
	"github.com/sweeney/posture-sensor/internal/mqtt"
	"github.com/sweeney/posture-sensor/internal/sensor"
	"github.com/sweeney/posture-sensor/internal/status"
)

// actuators is the output side the loop drives.
type actuators interface {
	gpio.Indicator
	gpio.Buzzer
}

// loop wires the state machine to its collaborators. tracker, metrics,
// mqttStatus and outbox may be nil.
type loop struct {
	reader      sensor.Reader
	outputs     actuators
	publisher   mqtt.Publisher
	mqttStatus  mqtt.ConnectionStatus
	outbox      mqtt.OutboxStatus
	tracker     *status.Tracker
	metrics     *metrics.Metrics
	heartbeat   time.Duration
	publishDiag bool
	now         func() time.Time
	after       func(time.Duration) <-chan time.Time
}

// run ticks the machine until a signal arrives. last is the most recent
// good sample, used in place of a failed read. Each wait starts after the
// tick's work is done, so the period is a minimum, not a schedule.
func (l *loop) run(machine *logic.Machine, last float64, period time.Duration, sig <-chan os.Signal) error {
	for {
		last = l.tick(machine, last)

		select {
		case s := <-sig:
			l.shutdown(s)
			return nil
		case <-l.after(period):
		}
	}
}

func (l *loop) tick(machine *logic.Machine, last float64) float64 {
	t := l.now()

	c, err := l.reader.Read()
	if err != nil {
		slog.Warn("sensor read failed, reusing previous sample", "err", err, "celsius", last)
		l.metrics.SensorFault()
		if l.tracker != nil {
			l.tracker.SensorFault()
		}
		c = last
	}

	res := machine.Tick(logic.Input{Celsius: c, Time: t})

	l.apply(res.Intent)

	for _, event := range res.Events {
		slog.Info("event", "type", event.Type, "state", event.State, "seated", event.SeatedTicks, "celsius", event.Temperature)
		if err := l.publisher.Publish(event); err != nil {
			slog.Warn("publish error", "err", err)
			l.metrics.PublishFailed()
		}
	}

	d := res.Diagnostics
	slog.Debug("tick",
		"seated", d.SeatedTicks,
		"standing", d.StandingTicks,
		"notify", d.NotifyTicks,
		"lookback_stand", d.LookbackStand,
		"lookback_sit", d.LookbackSit,
		"latest", d.Latest,
	)
	if l.publishDiag {
		if err := l.publisher.PublishDiagnostics(t, d); err != nil {
			slog.Debug("diagnostics publish error", "err", err)
		}
	}

	l.metrics.ObserveTick(res)
	if l.outbox != nil {
		l.metrics.ObserveOutbox(l.outbox.Buffered(), l.outbox.Dropped())
	}

	// Update status tracker for HTTP consumers
	if l.tracker != nil {
		l.tracker.Update(res, machine.EventCountsSnapshot(), machine.Ticks())
		if l.mqttStatus != nil {
			l.tracker.SetMQTTConnected(l.mqttStatus.IsConnected())
		}
		if l.outbox != nil {
			l.tracker.SetOutbox(l.outbox.Buffered(), l.outbox.Dropped())
		}
	}

	if hb := machine.CheckHeartbeat(t, l.heartbeat); hb != nil {
		l.publishHeartbeat(hb)
	}

	return c
}

// apply drives the actuators: release the previous pulse, show the color,
// then assert a new pulse. Faults are logged and never stop the loop.
func (l *loop) apply(in logic.Intent) {
	if in.ReleaseBuzzer {
		if err := l.outputs.SetBuzzer(false); err != nil {
			slog.Warn("buzzer release failed", "err", err)
		}
	}
	if err := l.outputs.SetIndicator(in.Indicator); err != nil {
		slog.Warn("indicator failed", "color", in.Indicator, "err", err)
	}
	if in.Buzzer {
		if err := l.outputs.SetBuzzer(true); err != nil {
			slog.Warn("buzzer failed", "err", err)
		}
	}
}

func (l *loop) publishHeartbeat(hb *logic.HeartbeatData) {
	slog.Info("heartbeat",
		"uptime", hb.Uptime,
		"ticks", hb.Ticks,
		"sat_down", hb.Counts.SatDown,
		"short_break", hb.Counts.ShortBreak,
		"stood_up", hb.Counts.StoodUp,
		"notify", hb.Counts.Notify,
	)

	event := mqtt.SystemEvent{
		Timestamp: hb.Timestamp,
		Event:     "HEARTBEAT",
	}
	if l.tracker != nil {
		// Refresh network info for heartbeat
		if net := readNetworkInfo(); net != nil {
			l.tracker.SetNetwork(net)
		}
		event.RawPayload = status.FormatStatusEvent(l.tracker.Snapshot(), "HEARTBEAT", "")
	}
	if err := l.publisher.PublishSystem(event); err != nil {
		slog.Warn("heartbeat publish error", "err", err)
	}
}

func (l *loop) shutdown(s os.Signal) {
	slog.Info("shutting down", "signal", s)

	signalName := "UNKNOWN"
	if s == syscall.SIGINT {
		signalName = "SIGINT"
	} else if s == syscall.SIGTERM {
		signalName = "SIGTERM"
	}

	event := mqtt.SystemEvent{
		Timestamp: l.now(),
		Event:     "SHUTDOWN",
		Reason:    signalName,
		Retained:  true,
	}
	if l.tracker != nil {
		if l.mqttStatus != nil {
			l.tracker.SetMQTTConnected(l.mqttStatus.IsConnected())
		}
		event.RawPayload = status.FormatStatusEvent(l.tracker.Snapshot(), "SHUTDOWN", signalName)
	}
	if err := l.publisher.PublishSystem(event); err != nil {
		slog.Warn("failed to publish shutdown event", "err", err)
	} else {
		slog.Info("published shutdown event")
	}
}
