package web

import (
	"fmt"
	"html/template"
	"io"
	"time"

	"github.com/sweeney/posture-sensor/internal/logic"
	"github.com/sweeney/posture-sensor/internal/mqtt"
	"github.com/sweeney/posture-sensor/internal/sensor"
	"github.com/sweeney/posture-sensor/internal/status"
)

var indexTmpl = template.Must(template.New("index").Funcs(template.FuncMap{
	"uptime": func(d time.Duration) string {
		d = d.Truncate(time.Second)
		days := int(d.Hours()) / 24
		h := int(d.Hours()) % 24
		m := int(d.Minutes()) % 60
		s := int(d.Seconds()) % 60
		if days > 0 {
			return fmt.Sprintf("%dd %dh %dm %ds", days, h, m, s)
		}
		if h > 0 {
			return fmt.Sprintf("%dh %dm %ds", h, m, s)
		}
		if m > 0 {
			return fmt.Sprintf("%dm %ds", m, s)
		}
		return fmt.Sprintf("%ds", s)
	},
	"fahrenheit": sensor.Fahrenheit,
	"cssColor": func(c logic.Color) template.CSS {
		r, g, b := c.RGB()
		return template.CSS(fmt.Sprintf("#%02x%02x%02x", r, g, b))
	},
	"lower": func(s logic.State) string {
		switch s {
		case logic.StateSeated:
			return "seated"
		case logic.StateStanding:
			return "standing"
		}
		return "unknown"
	},
}).Parse(indexHTML))

const indexHTML = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>Posture Sensor</title>
<style>
body { font-family: monospace; max-width: 600px; margin: 2em auto; padding: 0 1em; }
h1 { font-size: 1.4em; }
table { border-collapse: collapse; width: 100%; margin: 1em 0; }
td, th { text-align: left; padding: 4px 8px; border-bottom: 1px solid #ddd; }
th { width: 40%; }
.standing { color: green; font-weight: bold; }
.seated { color: blue; font-weight: bold; }
.unknown { color: orange; }
.connected { color: green; }
.disconnected { color: red; }
.lamp { display: inline-block; width: 12px; height: 12px; border-radius: 50%; vertical-align: middle; }
.live-dot { display: inline-block; width: 8px; height: 8px; border-radius: 50%; margin-left: 6px; vertical-align: middle; }
.live-dot.ok { background: green; }
.live-dot.err { background: red; }
.live-dot.pending { background: orange; }
</style>
</head>
<body>
<h1>Posture Sensor{{if .Config.WSBroker}}<span id="live-dot" class="live-dot pending" title="connecting"></span>{{end}}</h1>

<h2>Posture</h2>
<table>
<tr><th>State</th><td id="posture-state" class="{{lower .State}}">{{.State}}</td></tr>
<tr><th>Indicator</th><td><span class="lamp" style="background: {{cssColor .Indicator}}"></span> {{.Indicator}}{{if .Buzzing}} (buzzing){{end}}</td></tr>
<tr><th>Seat temperature</th><td>{{printf "%.2f" .Temperature}}&deg;C / {{printf "%.1f" (fahrenheit .Temperature)}}&deg;F</td></tr>
<tr><th>Seated</th><td id="seated-ticks">{{.Diagnostics.SeatedTicks}} ticks</td></tr>
<tr><th>Standing</th><td>{{.Diagnostics.StandingTicks}} ticks</td></tr>
<tr><th>Sensor faults</th><td>{{.SensorFaults}}</td></tr>
</table>

<h2>Connectivity</h2>
<table>
<tr><th>MQTT</th><td class="{{if .MQTTConnected}}connected{{else}}disconnected{{end}}">{{if .MQTTConnected}}connected{{else}}disconnected{{end}}{{if .MQTTBuffered}} ({{.MQTTBuffered}} queued){{end}}</td></tr>
<tr><th>Broker</th><td>{{.Config.Broker}}</td></tr>
{{if .Network}}<tr><th>Network</th><td>{{.Network.Status}} ({{.Network.Type}}{{if .Network.SSID}}, {{.Network.SSID}}{{end}})</td></tr>
<tr><th>IP</th><td>{{.Network.IP}}</td></tr>{{end}}
</table>

<h2>Event Counts</h2>
<table>
<tr><th>Sat down</th><td>{{.Counts.SatDown}}</td></tr>
<tr><th>Short breaks</th><td>{{.Counts.ShortBreak}}</td></tr>
<tr><th>Stood up</th><td>{{.Counts.StoodUp}}</td></tr>
<tr><th>Notifications</th><td>{{.Counts.Notify}}</td></tr>
</table>

<h2>System</h2>
<table>
<tr><th>Uptime</th><td>{{uptime .Uptime}}</td></tr>
<tr><th>Started</th><td>{{.StartTime.UTC.Format "2006-01-02T15:04:05Z"}}</td></tr>
<tr><th>Ticks</th><td>{{.Ticks}}</td></tr>
<tr><th>Period</th><td>{{.Config.PeriodMs}}ms</td></tr>
<tr><th>Heartbeat</th><td>{{if eq .Config.HeartbeatMs 0}}disabled{{else}}{{.Config.HeartbeatMs}}ms{{end}}</td></tr>
<tr><th>Sensor</th><td>{{.Config.Device}}</td></tr>
<tr><th>Boot</th><td>{{.BootID}}</td></tr>
</table>

<p><a href="/index.json">JSON</a> | <a href="/metrics">metrics</a></p>
{{if .Config.WSBroker}}
<script src="https://unpkg.com/mqtt@5/dist/mqtt.min.js"></script>
<script>
(function() {
  var broker = "{{.Config.WSBroker}}";
  var topic = "{{.Topic}}";
  var dot = document.getElementById("live-dot");
  var stateEl = document.getElementById("posture-state");
  var seatedEl = document.getElementById("seated-ticks");

  function setDot(cls, title) {
    dot.className = "live-dot " + cls;
    dot.title = title;
  }

  var client = mqtt.connect(broker, { reconnectPeriod: 5000 });

  client.on("connect", function() {
    setDot("ok", "live");
    client.subscribe(topic);
  });
  client.on("reconnect", function() { setDot("pending", "reconnecting"); });
  client.on("offline", function() { setDot("err", "offline"); });
  client.on("error", function() { setDot("err", "error"); });

  client.on("message", function(t, payload) {
    try {
      var msg = JSON.parse(payload.toString());
      if (msg.posture) {
        stateEl.textContent = msg.posture.state;
        stateEl.className = msg.posture.state === "SEATED" ? "seated" : "standing";
        seatedEl.textContent = msg.posture.seated_ticks + " ticks";
      }
    } catch (e) {}
  });
})();
</script>
{{end}}
</body>
</html>
`

func renderHTML(w io.Writer, snap status.Snapshot) error {
	// Snapshot has Uptime() method but template needs a Duration field.
	data := struct {
		status.Snapshot
		Uptime time.Duration
		Topic  string
	}{
		Snapshot: snap,
		Uptime:   snap.Uptime(),
		Topic:    mqtt.Topic,
	}
	return indexTmpl.Execute(w, data)
}
