// constants.go - Katzenpost multispool constants.
// Copyright (C) 2017  Yawning Angel.
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as
// published by the Free Software Foundation, either version 3 of the
// License, or (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program.  If not, see <http://www.gnu.org/licenses/>.

// Package constants contains the multispool service constants.
package constants

import (
	"time"

	sphinxconstants "github.com/katzenpost/core/sphinx/constants"
)

const (
	// DatabaseConnectTimeout is a duration used as the connect timeout
	// when opening a spool's backing bbolt database.
	DatabaseConnectTimeout = 3 * time.Second

	// MessageSize is the size, in bytes, of a spool message, pinned to
	// the mix network's forward payload size so a spooled message fits
	// exactly one Sphinx packet payload. Spool.Append does not enforce
	// it: messages are stored at whatever length they arrive.
	MessageSize = sphinxconstants.UserForwardPayloadLength

	// MessageIDSize is the length, in bytes, of a big-endian encoded
	// message sequence number.
	MessageIDSize = 4

	// SpoolIDSize is the length, in bytes, of a spool identifier.
	SpoolIDSize = 12

	// PublicKeySize is the length, in bytes, of an Ed25519 public key.
	PublicKeySize = 32

	// SignatureSize is the length, in bytes, of an Ed25519 signature.
	SignatureSize = 64

	// DefaultMaxSpoolCount is the default cap on the number of live
	// spools a MultiSpool will hold, absent explicit configuration.
	DefaultMaxSpoolCount = 10000

	// FlushInterval is a 10-second flush period. Nothing in this module
	// reads it: the store package has no flush timer, and each bbolt
	// write transaction is committed to disk before it returns.
	FlushInterval = 10 * time.Second

	// SnapshotAfterOps is a count of write operations between
	// snapshots. Nothing in this module reads it; the store package
	// takes no snapshots.
	SnapshotAfterOps = 1000

	// SocketPrefix is the filename prefix used when generating the
	// plugin's Unix domain socket path under os.TempDir().
	SocketPrefix = "multispool_"

	// CoreProtocolVersion is the plugin transport protocol version
	// advertised on startup.
	CoreProtocolVersion = 1

	// PluginProtocolVersion is the Katzenpost server plugin protocol
	// version advertised on startup.
	PluginProtocolVersion = 1
)
