// internal/app/bootstrap/dbdeps.go
package bootstrap

import (
	"github.com/dalemusser/storefront/internal/app/system/events"
	"github.com/dalemusser/storefront/internal/app/system/instrument"
	"github.com/dalemusser/storefront/internal/app/system/tasks"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
)

// DBDeps holds database/back-end dependencies for the app.
// Redis is nil when redis_url is blank; Events is events.Nop when amqp_url
// is blank.
type DBDeps struct {
	MongoClient   *mongo.Client
	MongoDatabase *mongo.Database

	Redis  *redis.Client
	Events events.Publisher

	Metrics   *instrument.Metrics
	Scheduler *tasks.Scheduler
}
