// Copyright (C) 2025-2026 CardinalHQ, Inc
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as
// published by the Free Software Foundation, version 3.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program. If not, see <http://www.gnu.org/licenses/>.


package idgen

import (
	"encoding/base32"
	"encoding/binary"
	"errors"
	"math/rand/v2"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/sony/sonyflake"
)

var DefaultFlakeGenerator *SonyFlakeGenerator

func init() {
	var err error
	DefaultFlakeGenerator, err = newFlakeGenerator()
	if err != nil {
		// NextID falls back to random ids without a Sonyflake.
		DefaultFlakeGenerator = &SonyFlakeGenerator{}
	}
}

type SonyFlakeGenerator struct {
	sf *sonyflake.Sonyflake
}

var flakeEncoding = base32.StdEncoding.WithPadding(base32.NoPadding)

// newFlakeGenerator derives the machine id from a private IPv4 address and,
// on hosts without one, from the hostname and pid.
func newFlakeGenerator() (*SonyFlakeGenerator, error) {
	sf, err := newSonyflake(nil)
	if err != nil {
		sf, err = newSonyflake(fallbackMachineID)
	}
	if err != nil {
		return nil, err
	}
	return &SonyFlakeGenerator{sf: sf}, nil
}

func newSonyflake(machineID func() (uint16, error)) (*sonyflake.Sonyflake, error) {
	settings := sonyflake.Settings{
		StartTime: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
		MachineID: machineID,
	}
	sf, err := sonyflake.New(settings)
	if err != nil {
		return nil, err
	}
	if sf == nil {
		return nil, errors.New("failed to create Sonyflake instance")
	}
	return sf, nil
}

func fallbackMachineID() (uint16, error) {
	host, _ := os.Hostname()
	return uint16(xxhash.Sum64String(host + "/" + strconv.Itoa(os.Getpid()))), nil
}

// NextID returns a positive int64 that'll increase roughly in time order.
func (sf *SonyFlakeGenerator) NextID() int64 {
	if sf.sf == nil {
		return rand.Int64()
	}
	v, err := sf.sf.NextID()
	if err != nil {
		return rand.Int64()
	}
	return int64(v)
}

// NextBase32ID returns NextID as lower-case unpadded base32, short enough
// to use in log attributes and file names.
func (sf *SonyFlakeGenerator) NextBase32ID() string {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], uint64(sf.NextID()))
	return strings.ToLower(flakeEncoding.EncodeToString(b[:]))
}

// NextBase32ID uses DefaultFlakeGenerator.
func NextBase32ID() string {
	return DefaultFlakeGenerator.NextBase32ID()
}
