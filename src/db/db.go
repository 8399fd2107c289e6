package db

import (
	"log"
	"os"
	"strconv"
	"ticketflow/src/config"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

var db *gorm.DB

func envInt(name string, fallback int) int {
	v, err := strconv.Atoi(os.Getenv(name))
	if err != nil || v <= 0 {
		return fallback
	}
	return v
}

// GetDb returns the shared connection. The pool is sized for the two hot
// paths, purchase bursts and door scans, and tunable per environment.
func GetDb() *gorm.DB {
	if db != nil {
		return db
	}
	_db, err := gorm.Open(postgres.Open(config.GetDSN()))
	if err != nil {
		log.Printf("Error connecting to database: %s\n", err.Error())
		panic(err)
	}
	sqlDB, err := _db.DB()
	if err != nil {
		log.Fatalf("Error establishing connection to database: %s\n", err.Error())
	}
	sqlDB.SetMaxIdleConns(envInt("DATABASE_MAX_IDLE_CONNS", 5))
	sqlDB.SetMaxOpenConns(envInt("DATABASE_MAX_OPEN_CONNS", 50))
	sqlDB.SetConnMaxLifetime(time.Duration(envInt("DATABASE_CONN_MAX_LIFETIME_MIN", 30)) * time.Minute)

	db = _db
	return _db
}

func NewDB(newdb *gorm.DB) {
	db = newdb
}
