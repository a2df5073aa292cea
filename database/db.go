package database

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/davecgh/go-spew/spew"
	"github.com/dnldd/pivotbreak/position"
	"github.com/dnldd/pivotbreak/shared"
	rqlitehttp "github.com/rqlite/rqlite-go-http"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

const (
	// SQL statements.
	createSignalTableSQL     = "CREATE TABLE IF NOT EXISTS signal (id TEXT PRIMARY KEY, kind INTEGER, market TEXT, timeframe TEXT, direction INTEGER, price TEXT, reason TEXT, createdon INTEGER)"
	createPositionTableSQL   = "CREATE TABLE IF NOT EXISTS position (id TEXT PRIMARY KEY, market TEXT, direction INTEGER, size TEXT, entryprice TEXT, exitprice TEXT, pnl TEXT, status INTEGER, createdon INTEGER, closedon INTEGER)"
	createMetadataSQL        = "CREATE TABLE IF NOT EXISTS metadata (id TEXT PRIMARY KEY, total INTEGER, wins INTEGER, winpoints TEXT, losses INTEGER, losspoints TEXT, createdon INTEGER)"
	persistSignalSQL         = "INSERT INTO signal(id, kind, market, timeframe, direction, price, reason, createdon) VALUES(?,?,?,?,?,?,?,?)"
	persistClosedPositionSQL = "INSERT INTO position(id, market, direction, size, entryprice, exitprice, pnl, status, createdon, closedon) VALUES(?,?,?,?,?,?,?,?,?,?)"
	findMetadataSQL          = "SELECT * FROM metadata WHERE id = ?"
	updateMetadataSQL        = "UPDATE metadata SET total = total + 1, wins = wins + ?, winpoints = CAST(winpoints AS REAL) + ?, losses = losses + ?, losspoints = CAST(losspoints AS REAL) + ? WHERE id = ?"
	persistMetadataSQL       = "INSERT INTO metadata(id, total, wins, winpoints, losses, losspoints, createdon) VALUES(?,?,?,?,?,?,?)"
)

// Journal defines the requirements for journaling trading activity.
type Journal interface {
	// PersistSignal stores the provided signal.
	PersistSignal(ctx context.Context, signal shared.Signal) error
	// PersistClosedPosition stores the provided closed position.
	PersistClosedPosition(ctx context.Context, position *position.Position) error
}

// DatabaseConfig is the configuration for the database.
type DatabaseConfig struct {
	// Endpoint represents the database connection endpoint.
	Endpoint string
	// User is the database user.
	User string
	// Pass is the database user pass.
	Pass string
	// Logger is the database logger.
	Logger *zerolog.Logger
}

// Database represents the rqlite backed trade journal.
type Database struct {
	cfg    *DatabaseConfig
	client *rqlitehttp.Client
}

// Ensure the database implements the Journal interface.
var _ Journal = (*Database)(nil)

// NewDatabase initializes a new database connection.
func NewDatabase(ctx context.Context, cfg *DatabaseConfig) (*Database, error) {
	httpc := &http.Client{Timeout: time.Second * 5}
	client, err := rqlitehttp.NewClient(cfg.Endpoint, httpc)
	if err != nil {
		return nil, fmt.Errorf("creating database client: %w", err)
	}

	if cfg.User != "" {
		client.SetBasicAuth(cfg.User, cfg.Pass)
	}

	db := &Database{
		cfg:    cfg,
		client: client,
	}

	err = db.bootstrap(ctx)
	if err != nil {
		return nil, fmt.Errorf("bootstrapping database: %w", err)
	}

	return db, nil
}

// execute runs the provided statements in a transaction.
func (db *Database) execute(ctx context.Context, statements rqlitehttp.SQLStatements) error {
	resp, err := db.client.Execute(ctx, statements, &rqlitehttp.ExecuteOptions{
		Transaction: true,
		Timings:     true,
	})
	if err != nil {
		return err
	}

	has, idx, errStr := resp.HasError()
	if has {
		return fmt.Errorf("statement %d failed: %s", idx, errStr)
	}

	return nil
}

// bootstrap initializes the database.
func (db *Database) bootstrap(ctx context.Context) error {
	return db.execute(ctx, rqlitehttp.SQLStatements{
		{SQL: createSignalTableSQL},
		{SQL: createPositionTableSQL},
		{SQL: createMetadataSQL},
	})
}

// generateMetadataID generates deterministic ids for metadata using the
// month, week and market of the provided time.
func generateMetadataID(at time.Time, market string) string {
	month := at.Month().String()
	week := at.Day() / 7

	id := fmt.Sprintf("%d-%s-Week-%d-%s", at.Year(), month, week, market)
	return id
}

// outcome represents the metadata contribution of a closed position.
type outcome struct {
	win        int
	winPoints  decimal.Decimal
	loss       int
	lossPoints decimal.Decimal
}

// tally classifies the provided closed position as a win or a loss.
func tally(pos *position.Position) (outcome, bool) {
	var out outcome

	switch {
	case pos.Status == position.StoppedOut && pos.PNL.IsNegative():
		out.loss++
		out.lossPoints = pos.PNL
	case pos.Status == position.Closed && !pos.PNL.IsNegative():
		out.win++
		out.winPoints = pos.PNL
	default:
		return out, false
	}

	return out, true
}

// signalParams returns the positional parameters of the provided signal.
func signalParams(signal shared.Signal) []any {
	return []any{signal.ID, int(signal.Kind), signal.Market, signal.Timeframe.String(), int(signal.Direction),
		signal.Price.String(), signal.Reason.String(), signal.CreatedOn.Unix()}
}

// positionParams returns the positional parameters of the provided position.
func positionParams(pos *position.Position) []any {
	return []any{pos.ID, pos.Market, int(pos.Direction), pos.Size.String(), pos.EntryPrice.String(),
		pos.ExitPrice.String(), pos.PNL.String(), int(pos.Status), pos.CreatedOn.Unix(), pos.ClosedOn.Unix()}
}

// PersistSignal stores the provided signal to the database.
func (db *Database) PersistSignal(ctx context.Context, signal shared.Signal) error {
	err := db.execute(ctx, rqlitehttp.SQLStatements{
		{
			SQL:              persistSignalSQL,
			PositionalParams: signalParams(signal),
		},
	})
	if err != nil {
		return fmt.Errorf("persisting signal %s: %w", signal.ID, err)
	}

	return nil
}

// PersistClosedPosition stores the provided closed position to the database
// and updates the weekly metadata of its market.
func (db *Database) PersistClosedPosition(ctx context.Context, pos *position.Position) error {
	err := db.execute(ctx, rqlitehttp.SQLStatements{
		{
			SQL:              persistClosedPositionSQL,
			PositionalParams: positionParams(pos),
		},
	})
	if err != nil {
		return fmt.Errorf("persisting position %s: %w", pos.ID, err)
	}

	out, ok := tally(pos)
	if !ok {
		db.cfg.Logger.Error().Msgf("unexpected closed position state for metadata calculations: %s",
			spew.Sdump(pos))
		return nil
	}

	id := generateMetadataID(pos.ClosedOn, pos.Market)
	resp, err := db.client.QuerySingle(ctx, findMetadataSQL, id)
	if err != nil {
		return fmt.Errorf("finding metadata %s: %w", id, err)
	}

	exists := len(resp.GetQueryResultsAssoc()) > 0
	switch {
	case exists:
		err = db.execute(ctx, rqlitehttp.SQLStatements{
			{
				SQL: updateMetadataSQL,
				PositionalParams: []any{out.win, out.winPoints.InexactFloat64(), out.loss,
					out.lossPoints.InexactFloat64(), id},
			},
		})
	default:
		err = db.execute(ctx, rqlitehttp.SQLStatements{
			{
				SQL: persistMetadataSQL,
				PositionalParams: []any{id, 1, out.win, out.winPoints.String(), out.loss,
					out.lossPoints.String(), pos.ClosedOn.Unix()},
			},
		})
	}
	if err != nil {
		return fmt.Errorf("updating metadata %s: %w", id, err)
	}

	return nil
}

// NoopJournal discards journaled activity.
type NoopJournal struct{}

// Ensure the noop journal implements the Journal interface.
var _ Journal = (*NoopJournal)(nil)

// PersistSignal discards the provided signal.
func (NoopJournal) PersistSignal(context.Context, shared.Signal) error {
	return nil
}

// PersistClosedPosition discards the provided position.
func (NoopJournal) PersistClosedPosition(context.Context, *position.Position) error {
	return nil
}
