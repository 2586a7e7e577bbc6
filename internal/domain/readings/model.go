package readings

// TimestampLayout es el formato del campo "timestamp" de cada lectura.
const TimestampLayout = "2006-01-02 15:04:05"

// Frame es un paquete de signos vitales tal como lo emite el dispositivo.
type Frame struct {
	Pulse       int     `json:"pulse"`
	Temperature float64 `json:"temperature"`
	Humidity    float64 `json:"humidity"`
}

type Reading struct {
	ID     string // timestamp con "_" en lugar del espacio
	UserID string

	Pulse       int
	Temperature float64
	Humidity    float64

	Timestamp string // TimestampLayout
}

type Metric string

const (
	MetricPulse       Metric = "pulse"
	MetricTemperature Metric = "temperature"
	MetricHumidity    Metric = "humidity"
)

type Level string

const (
	LevelHigh Level = "high"
	LevelLow  Level = "low"
)

type Alert struct {
	Metric  Metric
	Level   Level
	Message string // "High pulse!", "Low humidity!", ...
}
