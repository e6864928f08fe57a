package schema

import (
	"database/sql/driver"
	"fmt"
	"strconv"

	"github.com/holiman/uint256"
	"gorm.io/gorm"
	gormschema "gorm.io/gorm/schema"
)

// Uint256 is an unsigned 256-bit integer column.
// PostgreSQL stores it as numeric(78,0), other dialects as decimal text so no precision is lost.
type Uint256 uint256.Int

// NewUint256 copies v into a Uint256 column value
func NewUint256(v *uint256.Int) Uint256 {
	if v == nil {
		return Uint256{}
	}
	return Uint256(*v)
}

// Uint256FromUint64 creates a Uint256 column value from a uint64
func Uint256FromUint64(v uint64) Uint256 {
	return Uint256(*uint256.NewInt(v))
}

// Int returns a copy of the value as *uint256.Int
func (u Uint256) Int() *uint256.Int {
	v := uint256.Int(u)
	return &v
}

// String returns the decimal representation
func (u Uint256) String() string {
	v := uint256.Int(u)
	return v.Dec()
}

// IsZero reports whether the value is zero
func (u Uint256) IsZero() bool {
	v := uint256.Int(u)
	return v.IsZero()
}

// Value implements driver.Valuer
func (u Uint256) Value() (driver.Value, error) {
	return u.String(), nil
}

// Scan implements sql.Scanner
func (u *Uint256) Scan(src interface{}) error {
	var s string
	switch v := src.(type) {
	case nil:
		*u = Uint256{}
		return nil
	case string:
		s = v
	case []byte:
		s = string(v)
	case int64:
		if v < 0 {
			return fmt.Errorf("cannot scan negative value %d into Uint256", v)
		}
		s = strconv.FormatInt(v, 10)
	default:
		return fmt.Errorf("cannot scan %T into Uint256", src)
	}

	parsed, err := uint256.FromDecimal(s)
	if err != nil {
		return fmt.Errorf("failed to parse uint256 %q: %w", s, err)
	}
	*u = Uint256(*parsed)
	return nil
}

// GormDBDataType picks the column type per dialect
func (Uint256) GormDBDataType(db *gorm.DB, field *gormschema.Field) string {
	if db.Dialector.Name() == "postgres" {
		return "numeric(78,0)"
	}
	return "text"
}

// MarshalJSON encodes the value as a decimal string
func (u Uint256) MarshalJSON() ([]byte, error) {
	return []byte(strconv.Quote(u.String())), nil
}

// UnmarshalJSON decodes a decimal string or a JSON number
func (u *Uint256) UnmarshalJSON(data []byte) error {
	s := string(data)
	if unquoted, err := strconv.Unquote(s); err == nil {
		s = unquoted
	}
	return u.Scan(s)
}
