package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/wlansense/csi-capture/internal/csi"
)

// ReaderOption narrows which frames a FrameIterator yields.
type ReaderOption func(*FrameIterator)

// WithStartTime yields only frames recorded at or after the given time.
func WithStartTime(startTime time.Time) ReaderOption {
	return func(i *FrameIterator) {
		i.startTime = &startTime
	}
}

// WithEndTime yields only frames recorded at or before the given time.
func WithEndTime(endTime time.Time) ReaderOption {
	return func(i *FrameIterator) {
		i.endTime = &endTime
	}
}

// WithTimeRange combines WithStartTime and WithEndTime.
func WithTimeRange(startTime, endTime time.Time) ReaderOption {
	return func(i *FrameIterator) {
		i.startTime = &startTime
		i.endTime = &endTime
	}
}

// WithSourceMAC yields only frames from the given source address,
// formatted as aa:bb:cc:dd:ee:ff.
func WithSourceMAC(mac string) ReaderOption {
	return func(i *FrameIterator) {
		i.mac = &mac
	}
}

// WithChannel yields only frames captured on the given primary channel.
func WithChannel(channel uint8) ReaderOption {
	return func(i *FrameIterator) {
		i.channel = &channel
	}
}

// FrameIterator provides row-at-a-time iteration over a session's
// stored frames in insertion order.
type FrameIterator struct {
	sessionID int64
	startTime *time.Time
	endTime   *time.Time
	mac       *string
	channel   *uint8

	rows    *sql.Rows
	current FrameRecord
	err     error
}

// ReadFrames opens an iterator over the frames of a session, filtered by
// the given options. The caller must Close the iterator.
func (s *Store) ReadFrames(ctx context.Context, sessionID int64, options ...ReaderOption) (*FrameIterator, error) {
	db, err := s.getReadDB()
	if err != nil {
		return nil, fmt.Errorf("getting read connection: %w", err)
	}

	iter := FrameIterator{sessionID: sessionID}
	for _, option := range options {
		option(&iter)
	}

	query, args := iter.buildQuery()
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying frames: %w", err)
	}

	iter.rows = rows
	return &iter, nil
}

func (i *FrameIterator) buildQuery() (string, []any) {
	var b strings.Builder
	b.WriteString(selectFramesSQL)

	args := []any{i.sessionID}
	if i.startTime != nil {
		b.WriteString(" AND timestamp >= ?")
		args = append(args, i.startTime.UTC())
	}
	if i.endTime != nil {
		b.WriteString(" AND timestamp <= ?")
		args = append(args, i.endTime.UTC())
	}
	if i.mac != nil {
		b.WriteString(" AND mac = ?")
		args = append(args, *i.mac)
	}
	if i.channel != nil {
		b.WriteString(" AND channel = ?")
		args = append(args, *i.channel)
	}
	b.WriteString(" ORDER BY id")

	return b.String(), args
}

// Next advances to the next frame. It returns false at the end of the
// result set, on error, or once the context is done.
func (i *FrameIterator) Next(ctx context.Context) bool {
	if i.err != nil || i.rows == nil {
		return false
	}
	if err := ctx.Err(); err != nil {
		i.err = err
		return false
	}
	if !i.rows.Next() {
		i.err = i.rows.Err()
		return false
	}

	var f csi.Frame
	var rec FrameRecord
	var mac string
	var data []byte

	if err := i.rows.Scan(
		&rec.ID,
		&rec.Timestamp,
		&f.TimestampMicros,
		&mac,
		&f.RSSI,
		&f.Rate,
		&f.SigMode,
		&f.MCS,
		&f.ChannelBandwidth,
		&f.Smoothing,
		&f.NotSounding,
		&f.Aggregation,
		&f.STBC,
		&f.FECCoding,
		&f.SGI,
		&f.NoiseFloor,
		&f.AMPDUCount,
		&f.Channel,
		&f.SecondaryChannel,
		&f.LocalTimestamp,
		&f.Antenna,
		&f.SigLen,
		&f.RxState,
		&data,
	); err != nil {
		i.err = fmt.Errorf("scanning frame: %w", err)
		return false
	}

	if len(data) > csi.MaxDataLen {
		data = data[:csi.MaxDataLen]
	}
	copy(f.Data[:], payloadSamples(data))
	f.Len = uint16(len(data))

	if hw, err := parseMACColumn(mac); err == nil {
		f.MAC = hw
	}

	rec.SessionID = i.sessionID
	rec.Frame = f
	i.current = rec
	return true
}

// Current returns the frame the iterator is positioned on. Valid only
// after a Next call that returned true.
func (i *FrameIterator) Current() *FrameRecord {
	return &i.current
}

// Error returns the first error encountered during iteration.
func (i *FrameIterator) Error() error {
	return i.err
}

// Close releases the underlying result set.
func (i *FrameIterator) Close() error {
	if i.rows == nil {
		return nil
	}
	return i.rows.Close()
}

func parseMACColumn(s string) ([6]byte, error) {
	var mac [6]byte
	n, err := fmt.Sscanf(s, "%02x:%02x:%02x:%02x:%02x:%02x",
		&mac[0], &mac[1], &mac[2], &mac[3], &mac[4], &mac[5])
	if err != nil || n != 6 {
		return mac, fmt.Errorf("invalid MAC column %q", s)
	}
	return mac, nil
}
