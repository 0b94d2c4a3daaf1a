package store

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"time"

	"gorm.io/datatypes"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"
)

// SQL stores every collection in a single "records" table with a JSON document column.
type SQL struct {
	db  *gorm.DB
	now func() time.Time
}

type recordRow struct {
	Seq        uint64         `gorm:"primaryKey;autoIncrement"`
	ID         string         `gorm:"size:64;uniqueIndex:idx_records_collection_id,priority:2"`
	Collection string         `gorm:"size:64;uniqueIndex:idx_records_collection_id,priority:1"`
	Data       datatypes.JSON `gorm:"not null"`
	CreatedAt  time.Time      `gorm:"index"`
}

func (recordRow) TableName() string { return "records" }

// OpenSQL connects to postgres or sqlite and migrates the records table.
func OpenSQL(driver, dsn string) (*SQL, error) {
	var dialector gorm.Dialector
	switch driver {
	case "postgres":
		dialector = postgres.Open(dsn)
	case "sqlite":
		dialector = sqlite.Open(dsn)
	default:
		return nil, fmt.Errorf("unsupported sql driver: %s", driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: gormLogger.New(
			log.New(os.Stderr, "\r\n", log.LstdFlags),
			gormLogger.Config{
				SlowThreshold:             time.Second,
				LogLevel:                  gormLogger.Warn,
				IgnoreRecordNotFoundError: true,
				Colorful:                  false,
			},
		),
	})
	if err != nil {
		return nil, fmt.Errorf("connect to %s: %w", driver, err)
	}

	return NewSQL(db)
}

// NewSQL wraps an existing gorm connection.
func NewSQL(db *gorm.DB) (*SQL, error) {
	if err := db.AutoMigrate(&recordRow{}); err != nil {
		return nil, fmt.Errorf("migrate records table: %w", err)
	}
	return &SQL{db: db, now: time.Now}, nil
}

func (s *SQL) Insert(ctx context.Context, collection string, rec Record) (Record, error) {
	if err := validateCollection(collection); err != nil {
		return nil, err
	}

	prepared, err := prepareInsert(rec, s.now())
	if err != nil {
		return nil, err
	}

	row, err := toRow(collection, prepared)
	if err != nil {
		return nil, err
	}

	if err := s.db.WithContext(ctx).Create(row).Error; err != nil {
		return nil, fmt.Errorf("insert into %s: %w", collection, err)
	}

	return prepared, nil
}

func (s *SQL) Get(ctx context.Context, collection, id string) (Record, error) {
	var row recordRow
	err := s.db.WithContext(ctx).
		Where("collection = ? AND id = ?", collection, id).
		Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%s %s: %w", collection, id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get %s %s: %w", collection, id, err)
	}

	return fromRow(row)
}

func (s *SQL) Query(ctx context.Context, collection string, filter Filter, order *Order) ([]Record, error) {
	if err := validateCollection(collection); err != nil {
		return nil, err
	}

	query := s.db.WithContext(ctx).Where("collection = ?", collection)
	for key, value := range filter {
		if str, ok := value.(string); ok {
			query = query.Where(datatypes.JSONQuery("data").Equals(str, key))
		}
	}

	var rows []recordRow
	if err := query.Order("seq").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("query %s: %w", collection, err)
	}

	records := make([]Record, 0, len(rows))
	for _, row := range rows {
		rec, err := fromRow(row)
		if err != nil {
			return nil, err
		}
		// Non-string filters are matched here since JSON equality differs across dialects.
		ok, err := matches(rec, filter)
		if err != nil {
			return nil, err
		}
		if ok {
			records = append(records, rec)
		}
	}

	applyOrder(records, order)
	return records, nil
}

func (s *SQL) Update(ctx context.Context, collection, id string, patch Record) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var row recordRow
		err := tx.Where("collection = ? AND id = ?", collection, id).Take(&row).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("%s %s: %w", collection, id, ErrNotFound)
		}
		if err != nil {
			return fmt.Errorf("get %s %s: %w", collection, id, err)
		}

		current, err := fromRow(row)
		if err != nil {
			return err
		}

		merged, err := merge(current, patch)
		if err != nil {
			return err
		}

		data, err := marshalJSON(merged)
		if err != nil {
			return err
		}

		if err := tx.Model(&recordRow{}).Where("seq = ?", row.Seq).Update("data", datatypes.JSON(data)).Error; err != nil {
			return fmt.Errorf("update %s %s: %w", collection, id, err)
		}
		return nil
	})
}

func (s *SQL) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func toRow(collection string, rec Record) (*recordRow, error) {
	data, err := marshalJSON(rec)
	if err != nil {
		return nil, err
	}

	createdAt, _ := time.Parse(time.RFC3339Nano, fmt.Sprint(rec[FieldCreatedAt]))

	return &recordRow{
		ID:         rec.ID(),
		Collection: collection,
		Data:       data,
		CreatedAt:  createdAt,
	}, nil
}

func fromRow(row recordRow) (Record, error) {
	var rec Record
	if err := unmarshalJSON(row.Data, &rec); err != nil {
		return nil, fmt.Errorf("decode %s %s: %w", row.Collection, row.ID, err)
	}
	return rec, nil
}
