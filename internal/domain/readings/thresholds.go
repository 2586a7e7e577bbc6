package readings

import "strings"

type Range struct {
	Min float64
	Max float64
}

type Thresholds struct {
	Pulse       Range // bpm
	Temperature Range // °C
	Humidity    Range // %
}

func DefaultThresholds() Thresholds {
	return Thresholds{
		Pulse:       Range{Min: 60, Max: 100},
		Temperature: Range{Min: 36.0, Max: 37.5},
		Humidity:    Range{Min: 30, Max: 70},
	}
}

// Evaluate devuelve las alertas en orden pulso, temperatura, humedad.
// Los límites son inclusivos: un valor igual al límite no alerta.
func (t Thresholds) Evaluate(f Frame) []Alert {
	out := make([]Alert, 0, 3)
	out = appendAlert(out, MetricPulse, float64(f.Pulse), t.Pulse)
	out = appendAlert(out, MetricTemperature, f.Temperature, t.Temperature)
	out = appendAlert(out, MetricHumidity, f.Humidity, t.Humidity)
	return out
}

func appendAlert(out []Alert, m Metric, v float64, r Range) []Alert {
	switch {
	case v > r.Max:
		return append(out, Alert{Metric: m, Level: LevelHigh, Message: "High " + string(m) + "!"})
	case v < r.Min:
		return append(out, Alert{Metric: m, Level: LevelLow, Message: "Low " + string(m) + "!"})
	default:
		return out
	}
}

// Summary une los mensajes ("High pulse! Low humidity!").
func Summary(alerts []Alert) string {
	msgs := make([]string, 0, len(alerts))
	for _, a := range alerts {
		msgs = append(msgs, a.Message)
	}
	return strings.Join(msgs, " ")
}
