package usecase

import (
	"context"
	"errors"

	"github.com/NasaVasa/aptwatch/internal/domain"
)

var ErrComplexDirectoryDisabled = errors.New("complex directory not configured")

type ComplexUsecase struct {
	complexes domain.ComplexDirectory
}

func NewComplexUsecase(complexes domain.ComplexDirectory) *ComplexUsecase {
	return &ComplexUsecase{complexes: complexes}
}

func (u *ComplexUsecase) GetComplex(ctx context.Context, aptSeq int64) (*domain.ComplexInfo, error) {
	if u.complexes == nil {
		return nil, ErrComplexDirectoryDisabled
	}
	info, err := u.complexes.GetComplex(ctx, aptSeq)
	if err != nil {
		if errors.Is(err, domain.ErrComplexNotFound) {
			return nil, ErrComplexNotFound
		}
		return nil, err
	}
	return info, nil
}
