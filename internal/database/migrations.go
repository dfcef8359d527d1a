package database

import (
	"errors"
	"time"

	"github.com/MarcoPoloResearchLab/cashgame/internal/games"
	"github.com/MarcoPoloResearchLab/cashgame/internal/ledger"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	migrationBackfillSettlements = "2026-04-02_backfill_structured_settlements"
	settlementBackfillBatchSize  = 200
)

type migrationRecord struct {
	Name             string `gorm:"column:name;primaryKey;size:190;not null"`
	AppliedAtSeconds int64  `gorm:"column:applied_at_s;not null"`
}

func (migrationRecord) TableName() string {
	return "db_migrations"
}

type migrationDefinition struct {
	name  string
	apply func(*gorm.DB) error
}

func applyMigrations(db *gorm.DB, logger *zap.Logger) error {
	migrations := []migrationDefinition{
		{name: migrationBackfillSettlements, apply: backfillStructuredSettlements},
	}

	for _, migration := range migrations {
		var record migrationRecord
		err := db.Where("name = ?", migration.name).Take(&record).Error
		if err == nil {
			continue
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		if err := migration.apply(db); err != nil {
			return err
		}
		appliedAt := time.Now().UTC().Unix()
		if err := db.Create(&migrationRecord{Name: migration.name, AppliedAtSeconds: appliedAt}).Error; err != nil {
			return err
		}
		if logger != nil {
			logger.Info("database migration applied", zap.String("migration", migration.name))
		}
	}
	return nil
}

// backfillStructuredSettlements parses the notes of rows written before settlement
// columns existed and stores the result, so aggregation no longer parses them.
func backfillStructuredSettlements(db *gorm.DB) error {
	var pending []games.PlayerTransaction
	result := db.Where("settlement_recorded = ?", false).
		FindInBatches(&pending, settlementBackfillBatchSize, func(tx *gorm.DB, _ int) error {
			for index := range pending {
				row := &pending[index]
				var settlement *ledger.Settlement
				if row.Type == string(ledger.TransactionCashout) {
					settlement = ledger.SettlementFromNotes(row.Notes)
				}
				row.ApplySettlement(settlement)
				if err := tx.Model(&games.PlayerTransaction{}).
					Where("id = ?", row.ID).
					Updates(map[string]interface{}{
						"settlement_recorded": true,
						"settlement_cash":     row.SettlementCash,
						"settlement_credit":   row.SettlementCredit,
					}).Error; err != nil {
					return err
				}
			}
			return nil
		})
	return result.Error
}
