// Command posture-sensor infers whether the user is seated from a seat
// thermistor, nudges them to stand with an LED and a buzzer, and publishes
// posture events to MQTT.
package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/alecthomas/kong"
	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"github.com/joho/godotenv"

	"github.com/sweeney/posture-sensor/internal/gpio"
	"github.com/sweeney/posture-sensor/internal/logging"
	"github.com/sweeney/posture-sensor/internal/logic"
	"github.com/sweeney/posture-sensor/internal/metrics"
	"github.com/sweeney/posture-sensor/internal/mqtt"
	"github.com/sweeney/posture-sensor/internal/sensor"
	"github.com/sweeney/posture-sensor/internal/status"
	"github.com/sweeney/posture-sensor/internal/web"
)

// envFileVar names the variable that overrides the pi-helper env file path.
const envFileVar = "POSTURE_ENV_FILE"

const defaultEnvFile = "/run/pi-helper.env"

// CLI is the command line. Every flag can also be set from the environment.
type CLI struct {
	Period    time.Duration `default:"1s" env:"POSTURE_PERIOD" help:"Tick period."`
	Broker    string        `default:"tcp://192.168.1.200:1883" env:"POSTURE_BROKER" help:"MQTT broker address."`
	Heartbeat time.Duration `default:"15m" env:"POSTURE_HEARTBEAT" help:"Heartbeat interval (0 to disable)."`
	HTTP      string        `name:"http" default:":80" env:"POSTURE_HTTP" help:"HTTP status address (empty to disable)."`
	WSBroker  string        `name:"ws-broker" default:"=broker" env:"POSTURE_WS_BROKER" help:"MQTT websocket URL for the live UI (\"=broker\" derives from --broker, \"off\" disables)."`

	Device       string  `default:"${iio_path}" env:"POSTURE_DEVICE" help:"IIO raw ADC channel of the thermistor divider."`
	FullScale    int     `default:"${full_scale}" env:"POSTURE_FULL_SCALE" help:"Maximum raw ADC value."`
	SeriesOhms   float64 `default:"10000" env:"POSTURE_SERIES_OHMS" help:"Fixed divider resistor."`
	NominalOhms  float64 `default:"10000" env:"POSTURE_NOMINAL_OHMS" help:"Thermistor resistance at the nominal temperature."`
	NominalC     float64 `default:"25" env:"POSTURE_NOMINAL_C" help:"Nominal temperature in Celsius."`
	BCoefficient float64 `name:"beta" default:"3950" env:"POSTURE_BETA" help:"Thermistor beta coefficient."`
	LowSide      bool    `env:"POSTURE_LOW_SIDE" help:"Thermistor is on the ground side of the divider."`

	PinRed    int `default:"${pin_red}" env:"POSTURE_PIN_RED" help:"BCM pin of the red LED."`
	PinGreen  int `default:"${pin_green}" env:"POSTURE_PIN_GREEN" help:"BCM pin of the green LED."`
	PinBlue   int `default:"${pin_blue}" env:"POSTURE_PIN_BLUE" help:"BCM pin of the blue LED."`
	PinBuzzer int `default:"${pin_buzzer}" env:"POSTURE_PIN_BUZZER" help:"BCM pin of the buzzer."`

	PublishDiagnostics bool   `env:"POSTURE_PUBLISH_DIAGNOSTICS" help:"Publish per-tick diagnostics to MQTT."`
	LogLevel           string `default:"info" enum:"debug,info,warn,error" env:"POSTURE_LOG_LEVEL" help:"Log level."`
	LogFile            string `env:"POSTURE_LOG_FILE" help:"Also log to this rotating file."`
	PrintState         bool   `help:"Print the current temperature and exit."`
}

func (c *CLI) thermistor() sensor.Thermistor {
	return sensor.Thermistor{
		SeriesOhms:   c.SeriesOhms,
		NominalOhms:  c.NominalOhms,
		NominalC:     c.NominalC,
		BCoefficient: c.BCoefficient,
		HighSide:     !c.LowSide,
	}
}

func (c *CLI) pins() gpio.Pins {
	return gpio.Pins{Red: c.PinRed, Green: c.PinGreen, Blue: c.PinBlue, Buzzer: c.PinBuzzer}
}

func main() {
	loadEnvFile()

	var cli CLI
	kong.Parse(&cli,
		kong.Name("posture-sensor"),
		kong.Description("Seat thermistor posture tracker"),
		kong.UsageOnError(),
		defaultVars(),
	)

	closer, err := logging.Setup(logging.Config{Level: cli.LogLevel, File: cli.LogFile})
	if err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
	defer closer.Close()

	if err := run(&cli); err != nil {
		slog.Error("fatal", "err", err)
		closer.Close()
		os.Exit(1)
	}
}

func defaultVars() kong.Vars {
	pins := gpio.DefaultPins()
	return kong.Vars{
		"iio_path":   sensor.DefaultIIOPath,
		"full_scale": strconv.Itoa(sensor.DefaultFullScale),
		"pin_red":    strconv.Itoa(pins.Red),
		"pin_green":  strconv.Itoa(pins.Green),
		"pin_blue":   strconv.Itoa(pins.Blue),
		"pin_buzzer": strconv.Itoa(pins.Buzzer),
	}
}

// loadEnvFile loads the pi-helper env file, if present, without overriding
// variables that are already set.
func loadEnvFile() {
	path := os.Getenv(envFileVar)
	if path == "" {
		path = defaultEnvFile
	}
	if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "env file %s: %v\n", path, err)
	}
}

func run(cli *CLI) error {
	reader, err := sensor.NewRealReader(cli.Device, cli.FullScale, cli.thermistor())
	if err != nil {
		return fmt.Errorf("init sensor: %w", err)
	}
	defer reader.Close()

	baseline, err := readBaseline(context.Background(), reader, 200*time.Millisecond)
	if err != nil {
		return fmt.Errorf("read baseline: %w", err)
	}

	if cli.PrintState {
		fmt.Printf("temperature: %.2f°C (%.1f°F)\n", baseline, sensor.Fahrenheit(baseline))
		return nil
	}

	outputs, err := gpio.NewRealOutputs(cli.pins())
	if err != nil {
		return fmt.Errorf("init gpio: %w", err)
	}
	defer outputs.Close()

	bootID := uuid.NewString()

	publisher, err := mqtt.NewRealPublisher(mqtt.Options{
		Broker:   cli.Broker,
		ClientID: "posture-sensor-" + bootID[:8],
	})
	if err != nil {
		return fmt.Errorf("init mqtt: %w", err)
	}
	defer publisher.Close()

	ws := resolveWSBroker(cli.WSBroker, cli.Broker)
	startTime := time.Now()

	// Initialize status tracker (before STARTUP so snapshot is available)
	tracker := status.NewTracker(startTime, bootID, status.Config{
		PeriodMs:    cli.Period.Milliseconds(),
		HeartbeatMs: cli.Heartbeat.Milliseconds(),
		Broker:      cli.Broker,
		HTTPAddr:    cli.HTTP,
		WSBroker:    ws,
		Device:      cli.Device,
	})
	tracker.SetTemperature(baseline)
	tracker.SetMQTTConnected(publisher.IsConnected())
	if net := readNetworkInfo(); net != nil {
		tracker.SetNetwork(net)
	}

	// Publish startup event with full status snapshot
	snap := tracker.Snapshot()
	startupEvent := mqtt.SystemEvent{
		Timestamp:  snap.Now,
		Event:      "STARTUP",
		Retained:   true,
		RawPayload: status.FormatStatusEvent(snap, "STARTUP", ""),
	}
	if err := publisher.PublishSystem(startupEvent); err != nil {
		slog.Warn("failed to publish startup event", "err", err)
	} else {
		slog.Info("published startup event")
	}

	m := metrics.New()

	// Start HTTP status server
	if cli.HTTP != "" {
		srv := web.New(cli.HTTP, tracker, m.Handler())
		go func() {
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				slog.Error("http server error", "err", err)
			}
		}()
		defer srv.Shutdown(context.Background())
		slog.Info("http status server listening", "addr", cli.HTTP)
	}

	slog.Info("started",
		"period", cli.Period,
		"broker", cli.Broker,
		"heartbeat", cli.Heartbeat,
		"baseline_c", baseline,
		"boot_id", bootID,
	)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	l := &loop{
		reader:      reader,
		outputs:     outputs,
		publisher:   publisher,
		mqttStatus:  publisher,
		outbox:      publisher,
		tracker:     tracker,
		metrics:     m,
		heartbeat:   cli.Heartbeat,
		publishDiag: cli.PublishDiagnostics,
		now:         time.Now,
		after:       time.After,
	}
	return l.run(logic.NewMachine(baseline, startTime), baseline, cli.Period, sigCh)
}

// readBaseline reads the first sample, retrying with exponential backoff.
// There is no earlier sample to fall back on, so a persistent failure is fatal.
func readBaseline(ctx context.Context, reader sensor.Reader, minInterval time.Duration) (float64, error) {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = minInterval
	b.MaxInterval = 2 * time.Second

	var baseline float64
	op := func() error {
		c, err := reader.Read()
		if err != nil {
			return err
		}
		baseline = c
		return nil
	}
	notify := func(err error, next time.Duration) {
		slog.Warn("baseline read failed, retrying", "err", err, "in", next)
	}

	// 5 attempts in total
	err := backoff.RetryNotify(op, backoff.WithContext(backoff.WithMaxRetries(b, 4), ctx), notify)
	return baseline, err
}

// pi-helper env var names (written to /run/pi-helper.env).
const (
	envNetworkType       = "NETWORK_TYPE"
	envNetworkIP         = "NETWORK_IP"
	envNetworkStatus     = "NETWORK_STATUS"
	envNetworkGateway    = "NETWORK_GATEWAY"
	envNetworkWifiStatus = "NETWORK_WIFI_STATUS"
	envNetworkWifiSSID   = "NETWORK_WIFI_SSID"
)

func readNetworkInfo() *status.NetworkInfo {
	s := os.Getenv(envNetworkStatus)
	if s == "" {
		return nil
	}
	return &status.NetworkInfo{
		Type:       os.Getenv(envNetworkType),
		IP:         os.Getenv(envNetworkIP),
		Status:     s,
		Gateway:    os.Getenv(envNetworkGateway),
		WifiStatus: os.Getenv(envNetworkWifiStatus),
		SSID:       os.Getenv(envNetworkWifiSSID),
	}
}

// resolveWSBroker converts the --ws-broker flag value into a concrete URL.
// "=broker" derives ws://host:9001 from the TCP broker address; "off" disables.
func resolveWSBroker(ws, broker string) string {
	if ws == "off" {
		return ""
	}
	if ws != "=broker" {
		return ws
	}
	u, err := url.Parse(broker)
	if err != nil {
		slog.Warn("ws-broker: cannot parse broker", "broker", broker, "err", err)
		return ""
	}
	u.Scheme = "ws"
	u.Host = u.Hostname() + ":9001"
	return u.String()
}
