package database

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/apeaircreative/pepper-ecommerce-analysis/pkg/errs"
	"github.com/apeaircreative/pepper-ecommerce-analysis/pkg/models"

	_ "github.com/go-sql-driver/mysql"
	_ "modernc.org/sqlite"
)

var tableNamePattern = regexp.MustCompile(`^[A-Za-z0-9_]+$`)

// Open DSN mariadb:// ou mysql:// → driver MySQL ; sqlite://, file: ou *.db/*.sqlite → SQLite.
// Renvoie aussi le nom du driver et le DSN effectivement utilisé.
func Open(dsn string) (*sql.DB, string, string, error) {
	driver, native, err := resolveDSN(dsn)
	if err != nil {
		return nil, "", "", err
	}
	db, err := sql.Open(driver, native)
	if err != nil {
		return nil, "", "", err
	}
	if driver == "mysql" {
		db.SetMaxOpenConns(10)
		db.SetMaxIdleConns(10)
		db.SetConnMaxLifetime(30 * time.Minute)
	} else {
		// un seul écrivain SQLite ; lecture seule ici
		db.SetMaxOpenConns(1)
	}
	return db, driver, native, nil
}

func resolveDSN(dsn string) (driver, native string, err error) {
	d := strings.TrimSpace(dsn)
	switch {
	case d == "":
		return "", "", errs.Config("source.dsn", "empty dsn")
	case strings.HasPrefix(d, "mariadb://") || strings.HasPrefix(d, "mysql://"):
		native, err = toMySQLDSN(d)
		return "mysql", native, err
	case strings.HasPrefix(d, "sqlite://"):
		return "sqlite", strings.TrimPrefix(d, "sqlite://"), nil
	case strings.HasPrefix(d, "file:"),
		strings.HasSuffix(d, ".db"),
		strings.HasSuffix(d, ".sqlite"),
		strings.HasSuffix(d, ".sqlite3"):
		return "sqlite", d, nil
	}
	// DSN natif go-sql-driver (user:pass@tcp(host)/db)
	return "mysql", d, nil
}

func toMySQLDSN(dsn string) (string, error) {
	if strings.HasPrefix(dsn, "mariadb://") || strings.HasPrefix(dsn, "mysql://") {
		u, err := url.Parse(dsn)
		if err != nil {
			return "", fmt.Errorf("parse dsn: %w", err)
		}
		user := ""
		pass := ""
		if u.User != nil {
			user = u.User.Username()
			pw, _ := u.User.Password()
			pass = pw
		}
		host := u.Host
		db := strings.TrimPrefix(u.Path, "/")
		if user == "" || host == "" || db == "" {
			return "", fmt.Errorf("dsn incomplet (user/host/db)")
		}
		return fmt.Sprintf("%s:%s@tcp(%s)/%s?parseTime=true&loc=UTC&interpolateParams=true",
			user, pass, host, db), nil
	}
	return dsn, nil
}

// LoadTable lit toute une table (SELECT *) sous forme de models.Table.
// Les valeurs sont converties en texte ; les dates en RFC3339Nano (UTC).
func LoadTable(ctx context.Context, db *sql.DB, tableName string) (models.Table, error) {
	if !tableNamePattern.MatchString(tableName) {
		return models.Table{}, errs.InvalidInput("table invalide %q", tableName)
	}

	rows, err := db.QueryContext(ctx, fmt.Sprintf("SELECT * FROM %s", tableName))
	if err != nil {
		return models.Table{}, fmt.Errorf("query %s: %w", tableName, err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return models.Table{}, err
	}
	out := models.Table{Name: tableName, Columns: make([]string, len(cols))}
	for i, c := range cols {
		out.Columns[i] = strings.ToLower(c)
	}

	values := make([]any, len(cols))
	ptrs := make([]any, len(cols))
	for i := range values {
		ptrs[i] = &values[i]
	}
	for rows.Next() {
		if err := rows.Scan(ptrs...); err != nil {
			return models.Table{}, err
		}
		row := make(map[string]string, len(cols))
		for i, c := range out.Columns {
			row[c] = stringify(values[i])
		}
		out.Rows = append(out.Rows, row)
	}
	if err := rows.Err(); err != nil {
		return models.Table{}, err
	}
	return out, nil
}

func stringify(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case []byte:
		return string(x)
	case string:
		return x
	case time.Time:
		return x.UTC().Format(time.RFC3339Nano)
	case int64:
		return strconv.FormatInt(x, 10)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(x)
	default:
		return fmt.Sprint(x)
	}
}
