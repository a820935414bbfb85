package storage

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog/log"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"

	"agrosynchro-engine/internal/config"
	"agrosynchro-engine/internal/models"
)

var (
	// ErrNotFound signals a missing row; callers treat it as a skip, not a failure.
	ErrNotFound = errors.New("storage: not found")
	// ErrDuplicate signals that a unique constraint already holds the row,
	// e.g. another worker claimed the same raw image key.
	ErrDuplicate = errors.New("storage: duplicate")
)

// Store wraps the relational database behind per-operation methods. Each call
// is its own logical unit; no transaction spans multiple messages.
type Store struct {
	db *gorm.DB
}

func Open(cfg *config.Config) (*Store, error) {
	db, err := gorm.Open(postgres.Open(cfg.DSN()), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, err
	}

	if err := db.AutoMigrate(
		&models.User{},
		&models.Parameters{},
		&models.SensorReading{},
		&models.DroneImage{},
	); err != nil {
		return nil, err
	}

	log.Info().Str("host", cfg.DBHost).Str("db", cfg.DBName).Msg("Database connection established")

	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	db, err := s.db.DB()
	if err != nil {
		return err
	}
	return db.Close()
}

// Ping checks connectivity for health reporting.
func (s *Store) Ping(ctx context.Context) error {
	db, err := s.db.DB()
	if err != nil {
		return err
	}
	return db.PingContext(ctx)
}

// UserThresholds joins a user's configured bounds with their contact address.
type UserThresholds struct {
	UserID          uint `gorm:"column:userid"`
	MinTemperature  *float64
	MaxTemperature  *float64
	MinHumidity     *float64
	MaxHumidity     *float64
	MinSoilMoisture *float64
	MaxSoilMoisture *float64
	Mail            string
}

// Bounds returns the [min,max] pair configured for a measurement name.
func (u *UserThresholds) Bounds(measure string) (min, max *float64) {
	switch measure {
	case models.MeasureTemperature:
		return u.MinTemperature, u.MaxTemperature
	case models.MeasureHumidity:
		return u.MinHumidity, u.MaxHumidity
	case models.MeasureSoilMoisture:
		return u.MinSoilMoisture, u.MaxSoilMoisture
	}
	return nil, nil
}

// UserParameters fetches the thresholds and contact mail for a user.
// Returns ErrNotFound when the user has no parameters row.
func (s *Store) UserParameters(ctx context.Context, userID uint) (*UserThresholds, error) {
	var out UserThresholds
	err := s.db.WithContext(ctx).
		Table("parameters").
		Select("parameters.userid, parameters.min_temperature, parameters.max_temperature, "+
			"parameters.min_humidity, parameters.max_humidity, "+
			"parameters.min_soil_moisture, parameters.max_soil_moisture, users.mail").
		Joins("JOIN users ON users.userid = parameters.userid").
		Where("parameters.userid = ?", userID).
		Take(&out).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// InsertReadings appends one row per measurement in a single transaction.
func (s *Store) InsertReadings(ctx context.Context, userID uint, ts time.Time, values map[string]float64) error {
	if len(values) == 0 {
		return nil
	}

	rows := make([]models.SensorReading, 0, len(values))
	for _, measure := range models.Measures {
		value, ok := values[measure]
		if !ok {
			continue
		}
		rows = append(rows, models.SensorReading{
			UserID:    userID,
			Timestamp: ts,
			Measure:   measure,
			Value:     value,
		})
	}
	// Measurements outside the canonical set are stored as-is; the generic
	// measure/value shape is what keeps them forward-compatible.
	for measure, value := range values {
		if !isCanonical(measure) {
			rows = append(rows, models.SensorReading{
				UserID:    userID,
				Timestamp: ts,
				Measure:   measure,
				Value:     value,
			})
		}
	}

	return s.db.WithContext(ctx).Create(&rows).Error
}

func isCanonical(measure string) bool {
	for _, m := range models.Measures {
		if m == measure {
			return true
		}
	}
	return false
}

// Readings returns a user's reading history, newest first.
func (s *Store) Readings(ctx context.Context, userID uint, limit int) ([]models.SensorReading, error) {
	var rows []models.SensorReading
	tx := s.db.WithContext(ctx).Where("userid = ?", userID).Order("timestamp desc")
	if limit > 0 {
		tx = tx.Limit(limit)
	}
	if err := tx.Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// HasDroneImage reports whether a raw image key has already been recorded.
func (s *Store) HasDroneImage(ctx context.Context, rawKey string) (bool, error) {
	var count int64
	err := s.db.WithContext(ctx).
		Model(&models.DroneImage{}).
		Where("raw_s3_key = ?", rawKey).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// InsertDroneImage records a processed image exactly once per raw key.
// A conflicting insert means another worker already claimed the key and is
// reported as ErrDuplicate.
func (s *Store) InsertDroneImage(ctx context.Context, img *models.DroneImage) error {
	res := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "raw_s3_key"}},
			DoNothing: true,
		}).
		Create(img)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrDuplicate
	}
	return nil
}

// DroneImages returns processed image records, newest first.
func (s *Store) DroneImages(ctx context.Context, limit int) ([]models.DroneImage, error) {
	var rows []models.DroneImage
	tx := s.db.WithContext(ctx).Order("processed_at desc")
	if limit > 0 {
		tx = tx.Limit(limit)
	}
	if err := tx.Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// UpsertUser creates a user keyed on mail or refreshes subject and name on
// re-registration.
func (s *Store) UpsertUser(ctx context.Context, mail string, cognitoSub, name *string) (*models.User, error) {
	user := models.User{
		Mail:       mail,
		CognitoSub: cognitoSub,
		Name:       name,
	}
	err := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "mail"}},
			DoUpdates: clause.AssignmentColumns([]string{"cognito_sub", "name", "updated_at"}),
		}).
		Create(&user).Error
	if err != nil {
		return nil, err
	}
	if user.UserID == 0 {
		// Conflict path on older Postgres returns no id; read it back.
		if err := s.db.WithContext(ctx).Where("mail = ?", mail).Take(&user).Error; err != nil {
			return nil, err
		}
	}
	return &user, nil
}

// UserByID fetches a user row.
func (s *Store) UserByID(ctx context.Context, userID uint) (*models.User, error) {
	var user models.User
	err := s.db.WithContext(ctx).Where("userid = ?", userID).Take(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// UserBySubject resolves the external-identity subject claim to a user.
func (s *Store) UserBySubject(ctx context.Context, sub string) (*models.User, error) {
	var user models.User
	err := s.db.WithContext(ctx).Where("cognito_sub = ?", sub).Take(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// UpsertParameters writes a user's thresholds, one row per user.
func (s *Store) UpsertParameters(ctx context.Context, params *models.Parameters) error {
	var exists int64
	if err := s.db.WithContext(ctx).
		Model(&models.User{}).
		Where("userid = ?", params.UserID).
		Count(&exists).Error; err != nil {
		return err
	}
	if exists == 0 {
		return ErrNotFound
	}

	return s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "userid"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"min_temperature", "max_temperature",
				"min_humidity", "max_humidity",
				"min_soil_moisture", "max_soil_moisture",
			}),
		}).
		Create(params).Error
}
