// internal/app/bootstrap/dbdeps.go
package bootstrap

import (
	"github.com/dalemusser/safetyhub/internal/app/system/ratelimit"
	"github.com/dalemusser/safetyhub/internal/app/system/workers"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
)

// DBDeps holds database/back-end dependencies for the app.
// Extend this struct as your app evolves.
type DBDeps struct {
	SafetyHubMongoClient   *mongo.Client
	SafetyHubMongoDatabase *mongo.Database

	// Redis is nil when redis_addr is blank.
	Redis redis.UniversalClient

	// background is filled by BuildHandler and drained by Shutdown.
	background *background
}

// background tracks goroutine-owning components started with the handler.
type background struct {
	warmer  *workers.ReportWarmer
	limiter *ratelimit.Limiter
}
