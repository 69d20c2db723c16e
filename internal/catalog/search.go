package catalog

import (
	"strings"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/mysql"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"
)

var dialect = goqu.Dialect("mysql")

var bookColumns = []any{
	"isbn_number", "title", "author", "category_id", "availability_status", "created_at", "updated_at",
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// cleanText trims and NFC-normalizes user supplied text.
func cleanText(s string) string {
	return norm.NFC.String(strings.TrimSpace(s))
}

// containsPattern lowercases s and wraps it for a LIKE substring match.
func containsPattern(s string) string {
	needle := cases.Lower(language.Und).String(cleanText(s))
	return "%" + likeEscaper.Replace(needle) + "%"
}

// buildSearchQuery renders the book search as a prepared MySQL statement.
// ILike is used because the mysql dialect renders Like as LIKE BINARY.
func buildSearchQuery(f SearchFilter) (string, []any, error) {
	ds := dialect.From("books").Prepared(true).Select(bookColumns...)

	if strings.TrimSpace(f.Title) != "" {
		ds = ds.Where(goqu.Func("LOWER", goqu.C("title")).ILike(containsPattern(f.Title)))
	}
	if strings.TrimSpace(f.Author) != "" {
		ds = ds.Where(goqu.Func("LOWER", goqu.C("author")).ILike(containsPattern(f.Author)))
	}
	if f.CategoryID != nil {
		ds = ds.Where(goqu.Ex{"category_id": *f.CategoryID})
	}

	return ds.Order(goqu.C("title").Asc(), goqu.C("isbn_number").Asc()).ToSQL()
}
