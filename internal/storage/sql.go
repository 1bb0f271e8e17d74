package storage

import (
	_ "embed"
)

const (
	insertSessionSQL = `
INSERT INTO sessions (start_time,
                      device_type,
                      device_id,
                      config)
VALUES (CURRENT_TIMESTAMP, ?, ?, ?)`

	selectSessionSQL = `
SELECT id,
       start_time,
       device_type,
       device_id,
       config
FROM sessions
WHERE id = ?`

	selectSessionsSQL = `
SELECT id,
       start_time,
       device_type,
       device_id,
       config
FROM sessions`

	insertFrameSQL = `
INSERT INTO frames (session_id,
                    timestamp,
                    timestamp_us,
                    mac,
                    rssi,
                    rate,
                    sig_mode,
                    mcs,
                    bandwidth,
                    smoothing,
                    not_sounding,
                    aggregation,
                    stbc,
                    fec_coding,
                    sgi,
                    noise_floor,
                    ampdu_count,
                    channel,
                    secondary_channel,
                    local_timestamp,
                    antenna,
                    sig_len,
                    rx_state,
                    data)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	insertLinkStatusSQL = `
INSERT INTO link_status (session_id,
                         timestamp,
                         rssi,
                         noise_floor,
                         channel,
                         tx_power,
                         connected)
VALUES (?, ?, ?, ?, ?, ?, ?)`

	selectFramesSQL = `
SELECT id,
       timestamp,
       timestamp_us,
       mac,
       rssi,
       rate,
       sig_mode,
       mcs,
       bandwidth,
       smoothing,
       not_sounding,
       aggregation,
       stbc,
       fec_coding,
       sgi,
       noise_floor,
       ampdu_count,
       channel,
       secondary_channel,
       local_timestamp,
       antenna,
       sig_len,
       rx_state,
       data
FROM frames
WHERE session_id = ?`
)

//go:embed schema.sql
var schemaSQL string
