// errors.go - plugin-level errors (malformed transport envelopes).
// Copyright (C) 2019  David Anthony Stainton.
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

package plugin

// pluginError reports a transport-level failure: one that leaves no
// well-formed SpoolRequest to build a SpoolResponse from, as opposed to a
// spool-level failure that Dispatch reports inside a SpoolResponse's
// Status field.
type pluginError struct {
	msg string
}

func (e *pluginError) Error() string { return e.msg }

// New constructs a plugin-level error.
func New(msg string) error {
	return &pluginError{msg: msg}
}
