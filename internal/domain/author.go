package domain

import (
	"strings"
	"time"
)

// PersonName is a name split into given names and a family name.
type PersonName struct {
	First string
	Last  string
}

// SplitName treats the final whitespace-separated token as the last name and
// everything before it as the first name. Single-token names, usually consortia,
// yield an empty first name.
func SplitName(full string) PersonName {
	tokens := strings.Fields(full)
	switch len(tokens) {
	case 0:
		return PersonName{}
	case 1:
		return PersonName{Last: tokens[0]}
	}
	return PersonName{
		First: strings.Join(tokens[:len(tokens)-1], " "),
		Last:  tokens[len(tokens)-1],
	}
}

// Author is a stored author row.
//
// Identity is best-effort: an ORCID match wins, otherwise an exact first/last name
// match. Different people who share a name merge, and one person written with and
// without initials or diacritics splits into two rows.
type Author struct {
	ID        int64
	FirstName string
	LastName  string
	ORCID     string
	CreatedAt time.Time
}

// AuthorCredit is one author as listed on an article page, in listing order.
type AuthorCredit struct {
	FullName string
	ORCID    string
}

// Name splits the credit's full name.
func (c AuthorCredit) Name() PersonName {
	return SplitName(c.FullName)
}

// NormalizeORCID extracts the bare identifier from an ORCID URL or value.
func NormalizeORCID(value string) string {
	value = strings.TrimSpace(value)
	if i := strings.Index(value, "orcid.org/"); i >= 0 {
		value = value[i+len("orcid.org/"):]
	}
	return strings.Trim(value, "/ ")
}

// ArticleAuthor links an article to one of its authors.
type ArticleAuthor struct {
	ArticleID int64
	AuthorID  int64
}

// WordCount is a running count of a lowercase title token.
type WordCount struct {
	Word  string
	Count int64
}
