package service

import (
	"context"
	"fmt"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/sirupsen/logrus"

	"github.com/Kerhoff/ShoplistBot/internal/metrics"
	"github.com/Kerhoff/ShoplistBot/internal/models"
	"github.com/Kerhoff/ShoplistBot/internal/repository"
)

// RebuildTemplates replaces the family's shortlist with its n most often
// bought item texts. Texts differing only in case count as one.
func (s *Service) RebuildTemplates(ctx context.Context, familyID int64, n int) (int, error) {
	if n <= 0 {
		return 0, fmt.Errorf("template count %d: %w", n, ErrInvalidInput)
	}

	var stored int
	err := s.store.WithTx(ctx, func(r repository.Repositories) error {
		var err error
		stored, err = r.Templates().Replace(ctx, familyID, n, s.now())
		return err
	})
	if err != nil {
		return 0, classify("rebuild templates", err)
	}
	return stored, nil
}

// Templates returns the family's shortlist, most frequent first.
func (s *Service) Templates(ctx context.Context, familyID int64) ([]*models.Template, error) {
	templates, err := s.store.Templates().List(ctx, familyID, maxListLimit)
	if err != nil {
		return nil, classify("list templates", err)
	}
	return templates, nil
}

// MaintenanceConfig controls the background maintenance job.
type MaintenanceConfig struct {
	Interval       time.Duration
	RetentionDays  int
	TemplatesCount int
}

// Maintenance periodically purges old trash and rebuilds template shortlists.
type Maintenance struct {
	svc    *Service
	cfg    MaintenanceConfig
	logger *logrus.Logger
}

// NewMaintenance creates the maintenance job.
func NewMaintenance(svc *Service, cfg MaintenanceConfig) *Maintenance {
	return &Maintenance{svc: svc, cfg: cfg, logger: svc.logger}
}

// Run executes a pass immediately and then once per interval. It blocks
// until the context is cancelled, so it should be launched in a separate
// goroutine.
func (m *Maintenance) Run(ctx context.Context) {
	ticker := time.NewTicker(m.cfg.Interval)
	defer ticker.Stop()

	m.logger.WithField("interval", m.cfg.Interval).Info("Maintenance job started")

	for {
		if err := m.RunOnce(ctx); err != nil {
			m.logger.WithError(err).Error("Maintenance pass failed")
		}

		select {
		case <-ctx.Done():
			m.logger.Info("Maintenance job stopped")
			return
		case <-ticker.C:
		}
	}
}

// RunOnce purges trash past the retention period and rebuilds the templates
// of every family. A failing family does not stop the others.
func (m *Maintenance) RunOnce(ctx context.Context) error {
	var result *multierror.Error

	purged, err := m.svc.PurgeOlderThan(ctx, m.cfg.RetentionDays)
	if err != nil {
		result = multierror.Append(result, err)
	}

	familyIDs, err := m.svc.store.Families().ListIDs(ctx)
	if err != nil {
		result = multierror.Append(result, classify("list families", err))
	}

	rebuilt := 0
	for _, familyID := range familyIDs {
		if ctx.Err() != nil {
			result = multierror.Append(result, ctx.Err())
			break
		}
		if _, err := m.svc.RebuildTemplates(ctx, familyID, m.cfg.TemplatesCount); err != nil {
			result = multierror.Append(result, fmt.Errorf("family %d: %w", familyID, err))
			continue
		}
		rebuilt++
	}

	err = result.ErrorOrNil()
	if err != nil {
		metrics.MaintenanceRuns.WithLabelValues("error").Inc()
	} else {
		metrics.MaintenanceRuns.WithLabelValues("ok").Inc()
	}

	m.logger.WithFields(logrus.Fields{
		"purged":   purged,
		"families": rebuilt,
	}).Debug("Maintenance pass finished")
	return err
}
