package patron

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/mysql"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres"
	_ "github.com/doug-martin/goqu/v9/dialect/sqlite3"
	"github.com/doug-martin/goqu/v9/exp"
	"github.com/jmoiron/sqlx"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
)

const (
	tablePatron = "ole_ptrn_t"
	tableName   = "krim_entity_nm_t"
)

var nonWord = regexp.MustCompile(`[^\w]`)

// Row is the subset of the patron/name join used for login.
type Row struct {
	Id        string         `db:"OLE_PTRN_ID"`
	FirstName sql.NullString `db:"FIRST_NM"`
	LastName  sql.NullString `db:"LAST_NM"`
}

type Store interface {
	// Login returns nil when no patron matches barcode and login.
	Login(ctx context.Context, barcode string, login string) (*Row, error)
	Close() error
}

type StoreImpl struct {
	db         *sqlx.DB
	dialect    goqu.DialectWrapper
	schema     string
	loginField string
	encoding   encoding.Encoding
}

// NewStore creates a patron store. schema qualifies the table names and
// loginField names the krim_entity_nm_t column compared with the login.
func NewStore(db *sqlx.DB, dialect string, schema string, loginField string, charset string) (*StoreImpl, error) {
	field := SanitizeField(loginField)
	if field == "" {
		return nil, fmt.Errorf("invalid login field: %q", loginField)
	}
	enc, err := lookupCharset(charset)
	if err != nil {
		return nil, err
	}
	return &StoreImpl{
		db:         db,
		dialect:    goqu.Dialect(dialect),
		schema:     schema,
		loginField: field,
		encoding:   enc,
	}, nil
}

func lookupCharset(charset string) (encoding.Encoding, error) {
	switch strings.ToLower(charset) {
	case "", "utf8", "utf-8", "utf8mb4":
		return nil, nil
	case "latin1", "iso-8859-1", "iso8859-1":
		return charmap.ISO8859_1, nil
	case "cp1252", "windows-1252":
		return charmap.Windows1252, nil
	}
	return nil, fmt.Errorf("unsupported charset: %s", charset)
}

// SanitizeField strips everything but word characters from a column name.
func SanitizeField(field string) string {
	return nonWord.ReplaceAllString(field, "")
}

func (s *StoreImpl) table(name string) exp.IdentifierExpression {
	t := goqu.T(name)
	if s.schema != "" {
		t = t.Schema(s.schema)
	}
	return t
}

// LoginQuery builds the prepared login statement.
func (s *StoreImpl) LoginQuery(barcode string, login string) (string, []any, error) {
	q := s.dialect.From(s.table(tablePatron).As("p")).
		Join(s.table(tableName).As("n"), goqu.On(goqu.I("p.OLE_PTRN_ID").Eq(goqu.I("n.ENTITY_ID")))).
		Select(goqu.I("p.OLE_PTRN_ID"), goqu.I("n.FIRST_NM"), goqu.I("n.LAST_NM")).
		Where(
			goqu.Func("lower", goqu.I("n."+s.loginField)).Eq(s.encode(strings.ToLower(login))),
			goqu.Func("lower", goqu.I("p.BARCODE")).Eq(s.encode(strings.ToLower(barcode))),
		).
		Limit(1).
		Prepared(true)
	return q.ToSQL()
}

func (s *StoreImpl) Login(ctx context.Context, barcode string, login string) (*Row, error) {
	query, args, err := s.LoginQuery(barcode, login)
	if err != nil {
		return nil, fmt.Errorf("failed to build login query: %w", err)
	}
	var row Row
	err = s.db.GetContext(ctx, &row, query, args...)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if row.Id == "" {
		return nil, nil
	}
	row.Id = s.decode(row.Id)
	row.FirstName.String = s.decode(row.FirstName.String)
	row.LastName.String = s.decode(row.LastName.String)
	return &row, nil
}

func (s *StoreImpl) Close() error {
	return s.db.Close()
}

// encode converts a UTF-8 parameter to the database charset. Characters the
// charset cannot represent are left as they are.
func (s *StoreImpl) encode(v string) string {
	if s.encoding == nil {
		return v
	}
	out, err := s.encoding.NewEncoder().String(v)
	if err != nil {
		return v
	}
	return out
}

func (s *StoreImpl) decode(v string) string {
	if s.encoding == nil {
		return v
	}
	out, err := s.encoding.NewDecoder().String(v)
	if err != nil {
		return v
	}
	return out
}
