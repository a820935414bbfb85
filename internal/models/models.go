package models

import "time"

// User is created on first registration and upserted by mail afterwards.
type User struct {
	UserID     uint      `json:"userid" gorm:"column:userid;primaryKey"`
	Mail       string    `json:"mail" gorm:"uniqueIndex;not null"`
	CognitoSub *string   `json:"cognito_sub,omitempty" gorm:"uniqueIndex"`
	Name       *string   `json:"name,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

func (User) TableName() string { return "users" }

// Parameters holds the per-user alert thresholds. A nil bound means
// unconstrained on that side.
type Parameters struct {
	ID              uint     `json:"id" gorm:"primaryKey"`
	UserID          uint     `json:"userid" gorm:"column:userid;uniqueIndex;not null"`
	MinTemperature  *float64 `json:"min_temperature"`
	MaxTemperature  *float64 `json:"max_temperature"`
	MinHumidity     *float64 `json:"min_humidity"`
	MaxHumidity     *float64 `json:"max_humidity"`
	MinSoilMoisture *float64 `json:"min_soil_moisture"`
	MaxSoilMoisture *float64 `json:"max_soil_moisture"`
}

func (Parameters) TableName() string { return "parameters" }

// Bounds returns the [min,max] pair configured for a measurement name.
func (p *Parameters) Bounds(measure string) (min, max *float64) {
	switch measure {
	case MeasureTemperature:
		return p.MinTemperature, p.MaxTemperature
	case MeasureHumidity:
		return p.MinHumidity, p.MaxHumidity
	case MeasureSoilMoisture:
		return p.MinSoilMoisture, p.MaxSoilMoisture
	}
	return nil, nil
}

// Canonical measurement names carried by sensor payloads.
const (
	MeasureTemperature  = "temperature"
	MeasureHumidity     = "humidity"
	MeasureSoilMoisture = "soil_moisture"
)

// Measures lists the canonical measurements in evaluation order.
var Measures = []string{MeasureTemperature, MeasureHumidity, MeasureSoilMoisture}

// SensorReading is an append-only fact, one row per measurement.
type SensorReading struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	UserID    uint      `json:"userid" gorm:"column:userid;index;not null"`
	Timestamp time.Time `json:"timestamp" gorm:"not null"`
	Measure   string    `json:"measure" gorm:"not null"`
	Value     float64   `json:"value" gorm:"not null"`
}

func (SensorReading) TableName() string { return "sensor_data" }

// DroneImage records one processed drone image. The unique index on the raw
// key is what makes concurrent duplicate claims safe.
type DroneImage struct {
	ID           uint       `json:"id" gorm:"primaryKey"`
	DroneID      string     `json:"drone_id" gorm:"size:255"`
	RawKey       string     `json:"raw_s3_key" gorm:"column:raw_s3_key;size:500;uniqueIndex"`
	ProcessedKey string     `json:"processed_s3_key" gorm:"column:processed_s3_key;size:500"`
	FieldStatus  string     `json:"field_status" gorm:"size:50;default:unknown"`
	Confidence   float64    `json:"analysis_confidence" gorm:"column:analysis_confidence;default:0"`
	ProcessedAt  time.Time  `json:"processed_at" gorm:"autoCreateTime"`
	AnalyzedAt   *time.Time `json:"analyzed_at"`
}

func (DroneImage) TableName() string { return "drone_images" }
