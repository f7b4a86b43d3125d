package port

import (
	"context"

	"github.com/google/uuid"
	"github.com/perezbalen/Sprite-Sheet-Maker/internal/domain/entity"
)

type ExportJobRepository interface {
	Create(ctx context.Context, job *entity.ExportJob) error
	Update(ctx context.Context, job *entity.ExportJob) error
	FindByID(ctx context.Context, id uuid.UUID) (*entity.ExportJob, error)
}
