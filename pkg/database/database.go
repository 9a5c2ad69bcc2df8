package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"sort"
	"strings"
	"time"

	_ "github.com/microsoft/go-mssqldb"

	"github.com/BartekS5/marketsync/pkg/logger"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

// DefaultDatabase is used when the connection string carries no database,
// matching what the marketplace API falls back to.
const DefaultDatabase = "test"

func ConnectSQL(ctx context.Context, connString string) (*sql.DB, error) {
	db, err := sql.Open("sqlserver", connString)
	if err != nil {
		return nil, fmt.Errorf("error opening SQL database: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("error connecting to SQL database (ping failed): %w", err)
	}

	logger.Debugf("Connected to SQL Server audit database")
	return db, nil
}

// ConnectMongo opens a client for uri and pings the primary. label names the
// environment in status lines. A client that cannot be pinged is
// disconnected before returning.
func ConnectMongo(ctx context.Context, uri, label string) (*mongo.Client, error) {
	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(connectCtx, options.Client().ApplyURI(uri))
	if err != nil {
		logger.Errorf("Failed to connect to %s MongoDB: %v", label, err)
		return nil, fmt.Errorf("error creating %s MongoDB client: %w", label, err)
	}

	pingCtx, pingCancel := context.WithTimeout(ctx, 5*time.Second)
	defer pingCancel()

	if err := client.Ping(pingCtx, readpref.Primary()); err != nil {
		disconnectCtx, disconnectCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer disconnectCancel()
		_ = client.Disconnect(disconnectCtx)

		logger.Errorf("Failed to connect to %s MongoDB: %v", label, err)
		return nil, fmt.Errorf("error connecting to %s MongoDB (ping failed): %w", label, err)
	}

	logger.Infof("Connected to %s MongoDB", label)
	return client, nil
}

// Disconnect closes client with a bounded timeout and logs failures.
func Disconnect(client *mongo.Client, label string) {
	if client == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := client.Disconnect(ctx); err != nil {
		logger.Warnf("Error closing %s MongoDB connection: %v", label, err)
		return
	}
	logger.Debugf("Closed %s MongoDB connection", label)
}

// DatabaseName returns override when set, otherwise the database named in
// the path of uri, otherwise DefaultDatabase. The URI is not resolved, so
// mongodb+srv strings do not trigger DNS lookups here.
func DatabaseName(uri, override string) (string, error) {
	if override != "" {
		return override, nil
	}

	_, _, path, err := splitURI(uri)
	if err != nil {
		return "", err
	}
	if path == "" {
		return DefaultDatabase, nil
	}

	name, err := url.PathUnescape(path)
	if err != nil {
		return "", fmt.Errorf("invalid MongoDB connection string: %w", err)
	}
	return name, nil
}

// Deployment identifies the servers uri points at, ignoring credentials,
// options and host order. Hosts are lowercased and given the default port,
// so two spellings of the same replica set compare equal.
func Deployment(uri string) (string, error) {
	scheme, hosts, _, err := splitURI(uri)
	if err != nil {
		return "", err
	}

	list := strings.Split(strings.ToLower(hosts), ",")
	for i, h := range list {
		// SRV records carry their own ports
		if scheme == "mongodb" && !hasPort(h) {
			list[i] = h + ":27017"
		}
	}
	sort.Strings(list)
	return scheme + "://" + strings.Join(list, ","), nil
}

func hasPort(host string) bool {
	if strings.HasPrefix(host, "[") {
		return strings.Contains(host, "]:")
	}
	return strings.Contains(host, ":")
}

// splitURI breaks uri into its scheme, host list and raw database path.
func splitURI(uri string) (scheme, hosts, path string, err error) {
	rest, ok := strings.CutPrefix(uri, "mongodb://")
	scheme = "mongodb"
	if !ok {
		rest, ok = strings.CutPrefix(uri, "mongodb+srv://")
		scheme = "mongodb+srv"
	}
	if !ok {
		return "", "", "", errors.New("invalid MongoDB connection string: scheme must be mongodb:// or mongodb+srv://")
	}

	end := strings.IndexAny(rest, "/?")
	if end < 0 {
		end = len(rest)
	}
	hosts = rest[:end]
	if at := strings.LastIndexByte(hosts, '@'); at >= 0 {
		hosts = hosts[at+1:]
	}
	if hosts == "" {
		return "", "", "", errors.New("invalid MongoDB connection string: missing host")
	}

	if after := rest[end:]; strings.HasPrefix(after, "/") {
		path = after[1:]
		if q := strings.IndexByte(path, '?'); q >= 0 {
			path = path[:q]
		}
	}
	return scheme, hosts, path, nil
}
