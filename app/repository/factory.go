package repository

import (
	"sync"

	"gorm.io/gorm"
)

// Factory builds the repository set once per database handle.
type Factory struct {
	db    *gorm.DB
	repos *Repositories
	once  sync.Once
}

func NewFactory(db *gorm.DB) *Factory {
	return &Factory{db: db}
}

// GetRepositories lazily builds the set; later calls return the same value.
func (f *Factory) GetRepositories() *Repositories {
	f.once.Do(func() { f.repos = NewRepositories(f.db) })
	return f.repos
}

// NewRepositories wires the gorm implementations against db.
func NewRepositories(db *gorm.DB) *Repositories {
	return &Repositories{
		User:       NewUserRepository(db),
		Prediction: NewPredictionRepository(db),
		IngestRun:  NewIngestRunRepository(db),
	}
}

var (
	globalFactory *Factory
	factoryOnce   sync.Once
)

// InitializeFactory sets up the process-wide factory. Only the first call counts.
func InitializeFactory(db *gorm.DB) {
	factoryOnce.Do(func() { globalFactory = NewFactory(db) })
}

// GetGlobalFactory panics when InitializeFactory was never called.
func GetGlobalFactory() *Factory {
	if globalFactory == nil {
		panic("repository: InitializeFactory must run before GetGlobalFactory")
	}
	return globalFactory
}

func GetGlobalRepositories() *Repositories {
	return GetGlobalFactory().GetRepositories()
}
