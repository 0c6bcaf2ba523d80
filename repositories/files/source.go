package files

import (
	"context"
	"fmt"
	"os"

	"github.com/upb/recipe-api/repositories"
	"github.com/upb/recipe-api/services"
	"go.uber.org/zap"
)

// Source reads the dataset from a CSV file and an .npy file
type Source struct {
	csvPath string
	npyPath string
	logger  *zap.Logger
}

// NewSource creates a file-backed dataset source
func NewSource(csvPath, npyPath string, logger *zap.Logger) *Source {
	return &Source{
		csvPath: csvPath,
		npyPath: npyPath,
		logger:  logger,
	}
}

var _ repositories.DatasetSource = (*Source)(nil)

// Load reads and aligns both files
func (s *Source) Load(ctx context.Context) (*repositories.Dataset, error) {
	cf, err := os.Open(s.csvPath)
	if err != nil {
		return nil, missing("open recipes file", err)
	}
	defer cf.Close()

	recipes, err := ReadRecipes(cf)
	if err != nil {
		return nil, missing(fmt.Sprintf("parse %s", s.csvPath), err)
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	nf, err := os.Open(s.npyPath)
	if err != nil {
		return nil, missing("open embeddings file", err)
	}
	defer nf.Close()

	embeddings, err := ReadNPY(nf)
	if err != nil {
		return nil, missing(fmt.Sprintf("parse %s", s.npyPath), err)
	}

	ds, err := repositories.NewDataset(recipes, embeddings)
	if err != nil {
		return nil, err
	}

	s.logger.Info("dataset loaded from files",
		zap.String("recipes", s.csvPath),
		zap.String("embeddings", s.npyPath),
		zap.Int("records", ds.Len()),
		zap.Int("dimension", ds.Dim()))
	return ds, nil
}

func missing(message string, err error) error {
	return services.NewDomainError(services.ErrorTypeMissingResource, message, err)
}
