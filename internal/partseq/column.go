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

package partseq

import (
	"fmt"
	"strconv"
	"strings"
)

// ColumnSpec describes one partition key column. A Constant column is a
// literal rather than a reference to row data and is rejected by New.
type ColumnSpec struct {
	Name     string
	Kind     Kind
	Constant bool
}

// ParseColumnSpec parses "name" or "name:kind". A quoted string or a
// numeric literal yields a Constant column.
func ParseColumnSpec(s string) (ColumnSpec, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return ColumnSpec{}, fmt.Errorf("empty key column")
	}
	if isLiteral(s) {
		return ColumnSpec{Name: s, Constant: true}, nil
	}
	name, kindName, _ := strings.Cut(s, ":")
	name = strings.TrimSpace(name)
	if name == "" {
		return ColumnSpec{}, fmt.Errorf("key column %q has no name", s)
	}
	kind, err := ParseKind(kindName)
	if err != nil {
		return ColumnSpec{}, fmt.Errorf("key column %q: %w", name, err)
	}
	return ColumnSpec{Name: name, Kind: kind}, nil
}

// ParseColumnSpecs parses each entry with ParseColumnSpec.
func ParseColumnSpecs(specs []string) ([]ColumnSpec, error) {
	columns := make([]ColumnSpec, 0, len(specs))
	for _, s := range specs {
		c, err := ParseColumnSpec(s)
		if err != nil {
			return nil, err
		}
		columns = append(columns, c)
	}
	return columns, nil
}

func isLiteral(s string) bool {
	if len(s) >= 2 && (s[0] == '\'' || s[0] == '"') && s[len(s)-1] == s[0] {
		return true
	}
	_, err := strconv.ParseFloat(s, 64)
	return err == nil
}

func (c ColumnSpec) String() string {
	if c.Kind == KindAuto || c.Constant {
		return c.Name
	}
	return c.Name + ":" + c.Kind.String()
}

// DisplayString renders the function call a query plan would show.
func DisplayString(columns []string) string {
	return "partitionedRowNumber(" + strings.Join(columns, ", ") + ")"
}
