package db

import (
	"log"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func NewMockDB() (*gorm.DB, sqlmock.Sqlmock) {
	conn, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherFunc(func(expectedSQL, actualSQL string) error { return nil })))
	if err != nil {
		log.Fatalf("An error '%s' was not expected when opening a stub database connection", err)
	}

	gormDB, err := gorm.Open(postgres.New(postgres.Config{
		Conn:                 conn,
		PreferSimpleProtocol: true,
	}), &gorm.Config{
		SkipDefaultTransaction: true,
	})
	if err != nil {
		log.Fatalf("An error '%s' was not expected when opening gorm database", err)
	}

	return gormDB, mock
}

func GetMockDB() (*gorm.DB, sqlmock.Sqlmock) {
	gormDB, mock := NewMockDB()
	db = gormDB
	return gormDB, mock
}

func TestDB(t *testing.T) {
	gormDB, _ := NewMockDB()
	db = gormDB

	assert.Equal(t, "postgres", db.Name())
}

func TestEnvInt(t *testing.T) {
	t.Setenv("DATABASE_MAX_OPEN_CONNS", "80")
	assert.Equal(t, 80, envInt("DATABASE_MAX_OPEN_CONNS", 50))

	t.Setenv("DATABASE_MAX_OPEN_CONNS", "not a number")
	assert.Equal(t, 50, envInt("DATABASE_MAX_OPEN_CONNS", 50))

	t.Setenv("DATABASE_MAX_OPEN_CONNS", "-3")
	assert.Equal(t, 50, envInt("DATABASE_MAX_OPEN_CONNS", 50))

	assert.Equal(t, 5, envInt("DATABASE_MAX_IDLE_CONNS", 5))
}
