package database

import (
	"context"
	"database/sql"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"os"
	"path"

	gormzerolog "github.com/mpalmer/gorm-zerolog"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/ismrmrd/dicomweb-gateway/core"
)

const maxErrorLength = 4096

type deliveryRecord struct {
	Id          string         `gorm:"size:36;primaryKey;index:idx_delivery_search,priority:3"`
	Directory   string         `gorm:"size:1024;not null;index:idx_delivery_directory"`
	Outcome     string         `gorm:"size:16;not null;index:idx_delivery_outcome"`
	Files       int            `gorm:"not null"`
	Bytes       int64          `gorm:"not null"`
	StatusCode  sql.NullInt32
	Error       sql.NullString `gorm:"size:4096"`
	StartedAt   int64          `gorm:"not null;index:idx_delivery_search,priority:1"`
	CompletedAt int64          `gorm:"not null"`
}

func (deliveryRecord) TableName() string {
	return "deliveries"
}

type continuation struct {
	StartedTimeMs int64   `json:"ts"`
	Id            *string `json:"id,omitempty"`
}

type databaseRepository struct {
	db *gorm.DB
}

func OpenSqliteDatabase(dbPath string) (core.DeliveryJournal, error) {

	if err := os.MkdirAll(path.Dir(dbPath), os.ModePerm); err != nil {
		return nil, fmt.Errorf("unable to create directory for database: %v", err)
	}

	return createRepository(sqlite.Open(dbPath))
}

func ConnectPostgresqlDatabase(connectionString string) (core.DeliveryJournal, error) {
	dialector := postgres.New(postgres.Config{
		DSN:                  connectionString,
		PreferSimpleProtocol: true,
	})

	return createRepository(dialector)
}

func createRepository(dialector gorm.Dialector) (core.DeliveryJournal, error) {
	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:                 gormzerolog.Logger{},
		SkipDefaultTransaction: true,
	})

	if err != nil {
		return nil, err
	}

	return databaseRepository{db: db}, db.AutoMigrate(&deliveryRecord{})
}

func (r databaseRepository) RecordDelivery(ctx context.Context, delivery *core.Delivery) error {
	record := deliveryRecord{
		Id:          delivery.Id,
		Directory:   delivery.Directory,
		Outcome:     string(delivery.Outcome),
		Files:       delivery.Files,
		Bytes:       delivery.Bytes,
		StatusCode:  toNullInt32(delivery.StatusCode),
		Error:       toNullString(truncate(delivery.Error, maxErrorLength)),
		StartedAt:   delivery.StartedAt.UnixMilli(),
		CompletedAt: delivery.CompletedAt.UnixMilli(),
	}

	return r.db.WithContext(ctx).Create(&record).Error
}

func (r databaseRepository) GetDelivery(ctx context.Context, id string) (*core.Delivery, error) {
	var records []deliveryRecord
	if err := r.db.WithContext(ctx).Where("id = ?", id).Limit(1).Find(&records).Error; err != nil {
		return nil, err
	}

	if len(records) == 0 {
		return nil, core.ErrRecordNotFound
	}

	delivery := records[0].toDelivery()
	return &delivery, nil
}

func (r databaseRepository) SearchDeliveries(ctx context.Context, filter core.DeliveryFilter, ct *core.ContinutationToken, pageSize int) ([]core.Delivery, *core.ContinutationToken, error) {

	query := r.db.WithContext(ctx).Model(&deliveryRecord{})

	if filter.Outcome != nil {
		query = query.Where("outcome = ?", string(*filter.Outcome))
	}
	if filter.Directory != nil {
		query = query.Where("directory = ?", *filter.Directory)
	}

	if ct != nil {
		c, err := fromContinuationToken(*ct)
		if err != nil {
			return nil, nil, core.ErrInvalidContinuationToken
		}

		if c.Id == nil {
			query = query.Where("started_at < ?", c.StartedTimeMs)
		} else {
			query = query.Where("(started_at = ? AND id < ?) OR started_at < ?", c.StartedTimeMs, *c.Id, c.StartedTimeMs)
		}
	}

	var records []deliveryRecord
	err := query.
		Order("started_at DESC, id DESC").
		Limit(pageSize + 1).
		Find(&records).Error
	if err != nil {
		return nil, nil, err
	}

	results := make([]core.Delivery, 0, len(records))
	for _, record := range records {
		results = append(results, record.toDelivery())
	}

	if len(results) > pageSize {

		lastRecord, nextRecord := records[pageSize-1], records[pageSize]

		var c continuation
		if lastRecord.StartedAt == nextRecord.StartedAt {
			// the last entry of this page and the first entry of the next page share a
			// timestamp, so the ID is needed to tell them apart
			c = continuation{lastRecord.StartedAt, &lastRecord.Id}
		} else {
			c = continuation{lastRecord.StartedAt, nil}
		}

		ct := toContinuationToken(c)

		return results[:pageSize], &ct, nil
	}

	return results, nil, nil
}

func (r databaseRepository) HealthCheck(ctx context.Context) error {
	db, err := r.db.DB()
	if err != nil {
		return err
	}

	return db.PingContext(ctx)
}

func (record deliveryRecord) toDelivery() core.Delivery {
	delivery := core.Delivery{
		Id:          record.Id,
		Directory:   record.Directory,
		Outcome:     core.DeliveryOutcome(record.Outcome),
		Files:       record.Files,
		Bytes:       record.Bytes,
		StartedAt:   core.UnixTimeMsToTime(record.StartedAt),
		CompletedAt: core.UnixTimeMsToTime(record.CompletedAt),
	}

	if record.StatusCode.Valid {
		status := int(record.StatusCode.Int32)
		delivery.StatusCode = &status
	}
	if record.Error.Valid {
		delivery.Error = &record.Error.String
	}

	return delivery
}

func toContinuationToken(c continuation) core.ContinutationToken {
	bytes, _ := json.Marshal(c)
	return core.ContinutationToken(base64.RawURLEncoding.EncodeToString(bytes))
}

func fromContinuationToken(ct core.ContinutationToken) (continuation, error) {
	bytes, err := base64.RawURLEncoding.DecodeString(string(ct))
	var c continuation
	if err == nil {
		err = json.Unmarshal(bytes, &c)
	}

	return c, err
}

func toNullString(stringPointer *string) sql.NullString {
	if stringPointer == nil {
		return sql.NullString{}
	}

	return sql.NullString{String: *stringPointer, Valid: true}
}

func truncate(s *string, limit int) *string {
	if s == nil || len(*s) <= limit {
		return s
	}
	truncated := (*s)[:limit]
	return &truncated
}

func toNullInt32(intPointer *int) sql.NullInt32 {
	if intPointer == nil {
		return sql.NullInt32{}
	}

	return sql.NullInt32{Int32: int32(*intPointer), Valid: true}
}
