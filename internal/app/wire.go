//go:build wireinject
// +build wireinject

package app

import (
	"github.com/crewboard/server/internal/shared/config"
	"github.com/google/wire"
)

// InitializeApp creates the application using Wire.
func InitializeApp(cfg *config.Config) (*App, func(), error) {
	wire.Build(AppSet)
	return nil, nil, nil
}
