package mmp

import (
	"context"

	"github.com/turtacn/KeyIP-MMP/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/KeyIP-MMP/internal/infrastructure/storage/minio"
	"github.com/turtacn/KeyIP-MMP/internal/infrastructure/tableio"
	"github.com/turtacn/KeyIP-MMP/pkg/errors"
	"github.com/turtacn/KeyIP-MMP/pkg/types/table"
)

// TableRepository loads and stores tables by location.  A location is a
// local file path or a minio:// URI; the format follows the extension.
type TableRepository interface {
	Load(ctx context.Context, location string) (*table.Table, error)
	Save(ctx context.Context, location string, t *table.Table) error
	// RunLocation names the default object of a run output, or "" when
	// object storage is disabled.
	RunLocation(runID, name string) string
}

type tableRepository struct {
	store  minio.TableStore
	format tableio.Format
	logger logging.Logger
}

// NewTableRepository builds a repository.  store may be nil, in which case
// only local paths are accepted.
func NewTableRepository(store minio.TableStore, format tableio.Format, log logging.Logger) TableRepository {
	if log == nil {
		log = logging.NewNopLogger()
	}
	if format == "" {
		format = tableio.FormatCSV
	}
	return &tableRepository{store: store, format: format, logger: log}
}

func (r *tableRepository) Load(ctx context.Context, location string) (*table.Table, error) {
	if location == "" {
		return nil, errors.InvalidParam("table location is required")
	}
	if !minio.IsURI(location) {
		return tableio.ReadFile(location)
	}
	ref, err := r.objectRef(location)
	if err != nil {
		return nil, err
	}
	return r.store.GetTable(ctx, ref)
}

func (r *tableRepository) Save(ctx context.Context, location string, t *table.Table) error {
	if !minio.IsURI(location) {
		return tableio.WriteFile(location, t, tableio.FormatFromPath(location))
	}
	ref, err := r.objectRef(location)
	if err != nil {
		return err
	}
	res, err := r.store.PutTable(ctx, ref, t, tableio.FormatFromPath(ref.Key))
	if err != nil {
		return err
	}
	r.logger.Debug("table stored", logging.String("location", location), logging.Int64("size", res.Size))
	return nil
}

func (r *tableRepository) RunLocation(runID, name string) string {
	if r.store == nil {
		return ""
	}
	return r.store.RunRef(runID, name, r.format).String()
}

func (r *tableRepository) objectRef(location string) (minio.ObjectRef, error) {
	if r.store == nil {
		return minio.ObjectRef{}, errors.Newf(errors.ErrCodeBadRequest, "object storage is disabled, cannot use %s", location)
	}
	return minio.ParseURI(location)
}

//Personal.AI order the ending
