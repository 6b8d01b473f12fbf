package di

import (
	"database/sql"

	"pdf-qr-hub/internal/application/usecases"
	"pdf-qr-hub/internal/domain/repositories"
	repo "pdf-qr-hub/internal/infrastructure/repository/sqlite"
)

// Container provides app-wide singletons for repos and usecases.
type Container struct {
	DB *sql.DB

	// Repositories
	Files repositories.FileRepository

	// Usecases
	FileUC *usecases.FileUseCase
}

func New(db *sql.DB) *Container {
	c := &Container{
		DB:    db,
		Files: repo.NewFileRepo(),
	}
	c.FileUC = usecases.NewFileUseCase(c.Files)
	return c
}
