package migration

import (
	"context"
	"fmt"

	"github.com/livepoll/livepoll-backend/internal/domain"
	"github.com/livepoll/livepoll-backend/internal/repository"
	pkglogger "github.com/livepoll/livepoll-backend/pkg/logger"
	"gorm.io/gorm"
)

// Run executes AutoMigrate for the polls table
func Run(db *gorm.DB) error {
	// 테이블 없으면 생성, 있으면 컬럼만 추가
	if err := db.AutoMigrate(&domain.Poll{}); err != nil {
		return fmt.Errorf("auto-migrate polls: %w", err)
	}
	return nil
}

// UpgradeAll eagerly applies document upgrades to every poll stamped with an
// older schema version. Reads upgrade lazily as well, so this is optional.
func UpgradeAll(ctx context.Context, db *gorm.DB, batchSize int) (int, error) {
	if batchSize <= 0 {
		batchSize = 100
	}
	repo := repository.NewPollRepository(db)
	current := domain.CurrentSchemaVersion.String()

	var codes []string
	err := db.WithContext(ctx).Model(&domain.Poll{}).
		Where("schema_version IS NULL OR schema_version <> ?", current).
		Order("created_at ASC").
		Pluck("code", &codes).Error
	if err != nil {
		return 0, fmt.Errorf("list outdated polls: %w", err)
	}

	upgraded := 0
	for start := 0; start < len(codes); start += batchSize {
		end := start + batchSize
		if end > len(codes) {
			end = len(codes)
		}
		for _, code := range codes[start:end] {
			_, err := repo.Update(ctx, code, func(p *domain.Poll) error {
				if len(domain.Upgrade(p)) == 0 {
					return repository.ErrNoChanges
				}
				return nil
			})
			if err != nil {
				return upgraded, fmt.Errorf("upgrade poll %s: %w", code, err)
			}
			upgraded++
		}
		pkglogger.Info("upgraded %d/%d polls to schema %s", upgraded, len(codes), current)
	}
	return upgraded, nil
}
