package handler

import (
	"regexp"
	"strings"

	"github.com/maraichr/sqlshape/pkg/apierr"
)

const maxSQLBytes = 64 << 10

var dbIDRegex = regexp.MustCompile(`^[a-z_][a-z0-9_]{0,62}$`)

func validateSQL(field, sql string) *apierr.Error {
	if strings.TrimSpace(sql) == "" {
		return apierr.SQLRequired(field)
	}
	if len(sql) > maxSQLBytes {
		return apierr.SQLTooLong(field, maxSQLBytes)
	}
	return nil
}

func validateDBID(dbID string) *apierr.Error {
	if !dbIDRegex.MatchString(dbID) {
		return apierr.InvalidDBID()
	}
	return nil
}
