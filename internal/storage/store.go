// Package storage persists capture sessions: CSI frames and link
// telemetry recorded downstream of the controller, in a SQLite database
// per session file.
package storage

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"net"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/wlansense/csi-capture/internal/csi"
	"github.com/wlansense/csi-capture/internal/telemetry"
)

// Store handles database operations. Connections are opened lazily: a
// WAL-mode write connection and a read-only connection, each once.
type Store struct {
	dbPath string

	writeDB     *sql.DB
	writeDBOnce sync.Once
	writeDBErr  error

	readDB     *sql.DB
	readDBOnce sync.Once
	readDBErr  error

	closeOnce sync.Once
	closeErr  error
}

// New creates a store against the given database path. No connection is
// opened until first use.
func New(dbPath string) *Store {
	return &Store{dbPath: dbPath}
}

func initSchema(db *sql.DB) error {
	_, err := db.Exec(schemaSQL)
	return err
}

func (s *Store) getWriteDB() (*sql.DB, error) {
	s.writeDBOnce.Do(func() {
		db, err := sql.Open("sqlite3", fmt.Sprintf("file:%s?%s", s.dbPath, "_journal_mode=WAL&_synchronous=NORMAL"))
		if err != nil {
			s.writeDBErr = fmt.Errorf("opening write connection: %w", err)
			return
		}

		if err = initSchema(db); err != nil {
			_ = db.Close()
			s.writeDBErr = fmt.Errorf("initializing schema: %w", err)
			return
		}

		s.writeDB = db
	})

	return s.writeDB, s.writeDBErr
}

func (s *Store) getReadDB() (*sql.DB, error) {
	s.readDBOnce.Do(func() {
		db, err := sql.Open("sqlite3", fmt.Sprintf("file:%s?%s", s.dbPath, "mode=ro"))
		if err != nil {
			s.readDBErr = fmt.Errorf("opening read connection: %w", err)
			return
		}
		s.readDB = db
	})

	return s.readDB, s.readDBErr
}

// Close closes both connections. Safe to call more than once.
func (s *Store) Close() error {
	s.closeOnce.Do(func() {
		if s.writeDB != nil {
			if err := s.writeDB.Close(); err != nil {
				s.closeErr = err
			}
		}
		if s.readDB != nil {
			if err := s.readDB.Close(); err != nil && s.closeErr == nil {
				s.closeErr = err
			}
		}
	})
	return s.closeErr
}

// CreateSession creates a new session and returns its ID. The config is
// stored as JSON unless already given as a string or raw bytes.
func (s *Store) CreateSession(deviceType, deviceID string, config any) (sessionID int64, err error) {
	var configData sql.NullString

	if config != nil {
		switch v := config.(type) {
		case string:
			configData.Valid = true
			configData.String = v

		case []byte:
			configData.Valid = true
			configData.String = string(v)

		default:
			var p []byte
			if p, err = json.Marshal(config); err != nil {
				err = fmt.Errorf("marshaling config: %w", err)
				return
			}

			configData.Valid = true
			configData.String = string(p)
		}
	}

	db, err := s.getWriteDB()
	if err != nil {
		err = fmt.Errorf("getting write connection: %w", err)
		return
	}

	result, err := db.Exec(insertSessionSQL, deviceType, deviceID, configData)
	if err != nil {
		err = fmt.Errorf("inserting session: %w", err)
		return
	}

	return result.LastInsertId()
}

// Session returns a session by its ID.
func (s *Store) Session(id int64) (session *Session, err error) {
	db, err := s.getReadDB()
	if err != nil {
		err = fmt.Errorf("getting read connection: %w", err)
		return
	}

	var sess Session
	var config sql.NullString
	if err = db.QueryRow(selectSessionSQL, id).Scan(&sess.ID, &sess.StartTime, &sess.DeviceType, &sess.DeviceID, &config); err != nil {
		err = fmt.Errorf("scanning session: %w", err)
		return
	}
	if config.Valid {
		sess.Config = &config.String
	}
	return &sess, nil
}

// Sessions returns all recorded sessions.
func (s *Store) Sessions() (sessions []Session, err error) {
	db, err := s.getReadDB()
	if err != nil {
		err = fmt.Errorf("getting read connection: %w", err)
		return
	}

	rows, err := db.Query(selectSessionsSQL)
	if err != nil {
		err = fmt.Errorf("querying sessions: %w", err)
		return
	}
	defer closeWithError(rows, &err)

	for rows.Next() {
		var sess Session
		var config sql.NullString
		if err = rows.Scan(&sess.ID, &sess.StartTime, &sess.DeviceType, &sess.DeviceID, &config); err != nil {
			err = fmt.Errorf("scanning session: %w", err)
			return
		}
		if config.Valid {
			sess.Config = &config.String
		}
		sessions = append(sessions, sess)
	}
	err = rows.Err()
	return
}

// InsertFrames stores a batch of frames in one transaction. The wall
// clock timestamp is recorded per batch call.
func (s *Store) InsertFrames(sessionID int64, timestamp time.Time, frames []csi.Frame) (err error) {
	if len(frames) == 0 {
		return nil
	}

	db, err := s.getWriteDB()
	if err != nil {
		return fmt.Errorf("getting write connection: %w", err)
	}

	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer rollbackOnError(tx, &err)

	stmt, err := tx.Prepare(insertFrameSQL)
	if err != nil {
		return fmt.Errorf("preparing statement: %w", err)
	}
	defer closeWithError(stmt, &err)

	for i := range frames {
		f := &frames[i]
		if _, err = stmt.Exec(
			sessionID,
			timestamp.UTC(),
			f.TimestampMicros,
			macString(f.MAC),
			f.RSSI,
			f.Rate,
			f.SigMode,
			f.MCS,
			f.ChannelBandwidth,
			f.Smoothing,
			f.NotSounding,
			f.Aggregation,
			f.STBC,
			f.FECCoding,
			f.SGI,
			f.NoiseFloor,
			f.AMPDUCount,
			f.Channel,
			f.SecondaryChannel,
			f.LocalTimestamp,
			f.Antenna,
			f.SigLen,
			f.RxState,
			payloadBytes(f.Payload()),
		); err != nil {
			return fmt.Errorf("inserting frame: %w", err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

// InsertLinkStatus stores a link telemetry snapshot.
func (s *Store) InsertLinkStatus(sessionID int64, status *telemetry.LinkStatus) (linkID int64, err error) {
	db, err := s.getWriteDB()
	if err != nil {
		err = fmt.Errorf("getting write connection: %w", err)
		return
	}

	result, err := db.Exec(insertLinkStatusSQL,
		sessionID,
		status.Timestamp.UTC(),
		toNullInt64(status.RSSI),
		toNullInt64(status.NoiseFloor),
		toNullInt64(status.Channel),
		toNullInt64(status.TxPower),
		status.Connected,
	)
	if err != nil {
		err = fmt.Errorf("inserting link status: %w", err)
		return
	}

	return result.LastInsertId()
}

func macString(mac [6]byte) string {
	return net.HardwareAddr(mac[:]).String()
}

func toNullInt64(v *int64) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *v, Valid: true}
}

func payloadBytes(p []int8) []byte {
	out := make([]byte, len(p))
	for i, v := range p {
		out[i] = byte(v)
	}
	return out
}

func payloadSamples(p []byte) []int8 {
	out := make([]int8, len(p))
	for i, v := range p {
		out[i] = int8(v)
	}
	return out
}

func closeWithError(cl interface{ Close() error }, err *error) {
	if cErr := cl.Close(); cErr != nil && *err == nil {
		*err = cErr
	}
}

func rollbackOnError(rb interface{ Rollback() error }, err *error) {
	if *err != nil {
		_ = rb.Rollback()
	}
}
