package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	FindUserByEmail(ctx context.Context, db *gorm.DB, email string) (*User, error)
	InsertSession(ctx context.Context, db *gorm.DB, session *Session) error
	FindSessionByToken(ctx context.Context, db *gorm.DB, token string) (*Session, error)
	DeleteSession(ctx context.Context, db *gorm.DB, token string) error
	FindUserByID(ctx context.Context, db *gorm.DB, userID snowflake.ID) (*User, error)
	FindMembership(ctx context.Context, db *gorm.DB, userID snowflake.ID) (*Membership, error)
}
