// Package services contains the business logic of the identity server.
// UserService handles registration, password login with lockout, biometric
// token binding and lookup, and password recovery.
package services

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/intelliworks/intellihome/internal/common"
	"github.com/intelliworks/intellihome/internal/dbx"
	"github.com/intelliworks/intellihome/internal/server/auth"
	"github.com/intelliworks/intellihome/internal/server/config"
	"github.com/intelliworks/intellihome/internal/server/models"
	"github.com/intelliworks/intellihome/internal/server/repositories/repomanager"
	"github.com/intelliworks/intellihome/internal/server/repositories/users"
)

const birthDateLayout = "2006-01-02"

// Field messages returned in validation errors.
const (
	msgRequired      = "is required"
	msgTaken         = "is already registered"
	msgDigitsOnly    = "must contain only digits"
	msgBadEmail      = "is not a valid e-mail address"
	msgBadDate       = "must have the format YYYY-MM-DD"
	msgNoQuestion    = "does not exist"
	msgWrongAnswer   = "is incorrect"
	msgTokenRequired = "is required when biometric login is allowed"
	msgNotAllowed    = "must be set when a token is sent"
	msgBlockedWord   = "contains words that are not allowed"
)

// Registration is the input of Register. BirthDate is optional and uses
// the YYYY-MM-DD format.
type Registration struct {
	Username           string
	Email              string
	Phone              string
	FirstName          string
	LastName           string
	BirthDate          string
	Address            string
	Password           string
	RecoveryQuestionID int
	RecoveryAnswer     string
	AllowBiometric     bool
	Token              string
}

// LoginResult is a successful password login.
type LoginResult struct {
	User        *models.User
	AccessToken string
}

// RecoveryQuestion is the security question registered for an account.
type RecoveryQuestion struct {
	Identifier string
	QuestionID int
	Text       string
}

type UserService struct {
	db                          *sql.DB
	repomanager                 repomanager.RepositoryManager
	jwtSecret                   []byte
	accessTokenValidityDuration time.Duration
	maxFailedLogins             int
	bcryptCost                  int
	dummyHash                   []byte
	newID                       func() string
}

// NewUserService constructs a UserService using repositories and server config.
func NewUserService(db *sql.DB, m repomanager.RepositoryManager, cfg *config.Config) *UserService {
	return newUserService(db, m, cfg, bcrypt.DefaultCost)
}

func newUserService(db *sql.DB, m repomanager.RepositoryManager, cfg *config.Config, cost int) *UserService {
	maxFailed := cfg.MaxFailedLogins
	if maxFailed <= 0 {
		maxFailed = common.MaxFailedLogins
	}
	seed, err := common.MakeRandHexString(16)
	if err != nil {
		seed = "intellihome-dummy-password"
	}
	dummy, _ := bcrypt.GenerateFromPassword([]byte(seed), cost)
	return &UserService{
		db:                          db,
		repomanager:                 m,
		jwtSecret:                   []byte(cfg.SecretKey),
		accessTokenValidityDuration: cfg.AccessTokenValidityDuration,
		maxFailedLogins:             maxFailed,
		bcryptCost:                  cost,
		dummyHash:                   dummy,
		newID:                       uuid.NewString,
	}
}

// HashToken returns the stored form of an opaque biometric login token.
func HashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

func normalizeAnswer(answer string) []byte {
	return []byte(strings.ToLower(strings.TrimSpace(answer)))
}

// Register validates reg and creates the account. Rejected input yields a
// *common.ValidationError keyed by field.
func (s *UserService) Register(ctx context.Context, reg Registration) (*models.User, error) {
	fields, birthDate := validateRegistration(&reg)
	if len(fields) > 0 {
		return nil, common.NewValidationError(fields)
	}

	passwordHash, err := bcrypt.GenerateFromPassword([]byte(reg.Password), s.bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("error hashing password: %w", err)
	}
	answerHash, err := bcrypt.GenerateFromPassword(normalizeAnswer(reg.RecoveryAnswer), s.bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("error hashing recovery answer: %w", err)
	}

	user := &models.User{
		ID:                 s.newID(),
		Username:           reg.Username,
		Email:              reg.Email,
		Phone:              reg.Phone,
		FirstName:          reg.FirstName,
		LastName:           reg.LastName,
		BirthDate:          birthDate,
		Address:            reg.Address,
		RoleID:             models.DefaultRoleID,
		PasswordHash:       passwordHash,
		RecoveryQuestionID: reg.RecoveryQuestionID,
		RecoveryAnswerHash: answerHash,
		AllowBiometric:     reg.AllowBiometric,
	}
	if reg.Token != "" {
		user.TokenHash = HashToken(reg.Token)
	}

	var created *models.User
	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repomanager.Users(tx)

		taken, err := repo.TakenFields(ctx, user.Username, user.Email, user.Phone)
		if err != nil {
			return err
		}
		if len(taken) > 0 {
			f := make(map[string]string, len(taken))
			for _, name := range taken {
				f[name] = msgTaken
			}
			return common.NewValidationError(f)
		}

		created, err = repo.Create(ctx, user)
		return err
	})
	if err != nil {
		var verr *common.ValidationError
		if errors.As(err, &verr) {
			return nil, verr
		}
		var dup *users.DuplicateError
		if errors.As(err, &dup) {
			return nil, common.NewValidationError(map[string]string{dup.Field: msgTaken})
		}
		return nil, fmt.Errorf("error creating user: %w", err)
	}
	return created, nil
}

// blockedNameWords may not appear anywhere in a username or a name.
var blockedNameWords = []string{
	"cabron", "coño", "fuck", "marica", "mierda", "nazi", "nigga",
	"pendejo", "perra", "picha", "pinga", "puta", "puto", "sexo", "verga",
}

func containsBlockedWord(v string) bool {
	v = strings.ToLower(v)
	for _, w := range blockedNameWords {
		if strings.Contains(v, w) {
			return true
		}
	}
	return false
}

func validateRegistration(reg *Registration) (map[string]string, time.Time) {
	fields := map[string]string{}

	reg.Username = strings.TrimSpace(reg.Username)
	reg.Email = strings.TrimSpace(reg.Email)
	reg.Phone = strings.TrimSpace(reg.Phone)
	reg.FirstName = strings.TrimSpace(reg.FirstName)
	reg.LastName = strings.TrimSpace(reg.LastName)
	reg.Address = strings.TrimSpace(reg.Address)

	for name, v := range map[string]string{
		"username":   reg.Username,
		"email":      reg.Email,
		"first_name": reg.FirstName,
		"last_name":  reg.LastName,
	} {
		if v == "" {
			fields[name] = msgRequired
		}
	}

	for name, v := range map[string]string{
		"username":   reg.Username,
		"first_name": reg.FirstName,
		"last_name":  reg.LastName,
	} {
		if containsBlockedWord(v) {
			fields[name] = msgBlockedWord
		}
	}

	if reg.Email != "" {
		if addr, err := mail.ParseAddress(reg.Email); err != nil || addr.Address != reg.Email {
			fields["email"] = msgBadEmail
		}
	}

	if reg.Phone == "" {
		fields["phone"] = msgRequired
	} else if strings.IndexFunc(reg.Phone, func(r rune) bool { return r < '0' || r > '9' }) >= 0 {
		fields["phone"] = msgDigitsOnly
	}

	if p := common.CheckPassword(reg.Password); p != "" {
		fields["password"] = p
	}

	if _, ok := common.RecoveryQuestions[reg.RecoveryQuestionID]; !ok {
		fields["recovery_question"] = msgNoQuestion
	}
	if strings.TrimSpace(reg.RecoveryAnswer) == "" {
		fields["recovery_answer"] = msgRequired
	}

	var birthDate time.Time
	if reg.BirthDate != "" {
		d, err := time.Parse(birthDateLayout, reg.BirthDate)
		if err != nil {
			fields["birth_date"] = msgBadDate
		}
		birthDate = d
	}

	switch {
	case reg.AllowBiometric && reg.Token == "":
		fields["token"] = msgTokenRequired
	case !reg.AllowBiometric && reg.Token != "":
		fields["allow_biometric"] = msgNotAllowed
	}

	return fields, birthDate
}

// Login authenticates by username, e-mail or phone. Wrong passwords count
// towards the lockout limit; a locked account yields common.ErrAccountLocked.
func (s *UserService) Login(ctx context.Context, identifier, password string) (*LoginResult, error) {
	identifier = strings.TrimSpace(identifier)
	if identifier == "" || password == "" {
		f := map[string]string{}
		if identifier == "" {
			f["identifier"] = msgRequired
		}
		if password == "" {
			f["password"] = msgRequired
		}
		return nil, common.NewValidationError(f)
	}

	repo := s.repomanager.Users(s.db)
	user, err := repo.GetUserByLogin(ctx, identifier)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			_ = bcrypt.CompareHashAndPassword(s.dummyHash, []byte(password))
			return nil, common.ErrorUnauthorized
		}
		return nil, common.ErrorInternal
	}

	if user.Locked() {
		return nil, common.ErrAccountLocked
	}

	if bcrypt.CompareHashAndPassword(user.PasswordHash, []byte(password)) != nil {
		if _, _, err := repo.RecordFailedLogin(ctx, user.ID, s.maxFailedLogins); err != nil {
			return nil, common.ErrorInternal
		}
		return nil, common.ErrorUnauthorized
	}

	if user.FailedAttempts > 0 {
		if err := repo.ResetFailedLogins(ctx, user.ID); err != nil {
			return nil, common.ErrorInternal
		}
		user.FailedAttempts = 0
	}

	token, err := auth.GenerateToken(user.ID, s.jwtSecret, s.accessTokenValidityDuration)
	if err != nil {
		return nil, common.ErrorInternal
	}
	return &LoginResult{User: user, AccessToken: token}, nil
}

// LookupByToken resolves an opaque biometric login token to its account.
// Unknown tokens yield common.ErrorNotFound.
func (s *UserService) LookupByToken(ctx context.Context, token string) (*models.User, error) {
	if token == "" {
		return nil, common.ErrorNotFound
	}

	user, err := s.repomanager.Users(s.db).GetUserByTokenHash(ctx, HashToken(token))
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrorNotFound
		}
		return nil, common.ErrorInternal
	}
	if user.Locked() {
		return nil, common.ErrAccountLocked
	}
	return user, nil
}

// BindToken replaces the biometric login token of userID.
func (s *UserService) BindToken(ctx context.Context, userID, token string) error {
	if token == "" {
		return common.NewValidationError(map[string]string{"token": msgRequired})
	}

	err := s.repomanager.Users(s.db).SetTokenHash(ctx, userID, HashToken(token))
	if err != nil {
		var dup *users.DuplicateError
		switch {
		case errors.As(err, &dup):
			return common.NewValidationError(map[string]string{"token": msgTaken})
		case errors.Is(err, common.ErrorNotFound):
			return common.ErrorUnauthorized
		default:
			return common.ErrorInternal
		}
	}
	return nil
}

func (s *UserService) RecoveryQuestion(ctx context.Context, identifier string) (*RecoveryQuestion, error) {
	identifier = strings.TrimSpace(identifier)
	if identifier == "" {
		return nil, common.NewValidationError(map[string]string{"identifier": msgRequired})
	}

	user, err := s.repomanager.Users(s.db).GetUserByLogin(ctx, identifier)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrorNotFound
		}
		return nil, common.ErrorInternal
	}

	text, ok := common.RecoveryQuestions[user.RecoveryQuestionID]
	if !ok {
		return nil, common.ErrorInternal
	}
	return &RecoveryQuestion{Identifier: identifier, QuestionID: user.RecoveryQuestionID, Text: text}, nil
}

// ResetPassword sets a new password when answer matches the recovery answer
// (case-insensitive). It also clears the failure counter and unlocks the
// account.
func (s *UserService) ResetPassword(ctx context.Context, identifier, newPassword, answer string) error {
	identifier = strings.TrimSpace(identifier)
	if identifier == "" {
		return common.NewValidationError(map[string]string{"identifier": msgRequired})
	}

	return dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repomanager.Users(tx)

		user, err := repo.GetUserByLogin(ctx, identifier)
		if err != nil {
			if errors.Is(err, common.ErrorNotFound) {
				return common.ErrorNotFound
			}
			return common.ErrorInternal
		}

		if bcrypt.CompareHashAndPassword(user.RecoveryAnswerHash, normalizeAnswer(answer)) != nil {
			return common.NewValidationError(map[string]string{"recovery_answer": msgWrongAnswer})
		}
		if p := common.CheckPassword(newPassword); p != "" {
			return common.NewValidationError(map[string]string{"new_password": p})
		}

		hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), s.bcryptCost)
		if err != nil {
			return fmt.Errorf("error hashing password: %w", err)
		}
		if err := repo.UpdatePassword(ctx, user.ID, hash); err != nil {
			return common.ErrorInternal
		}
		return nil
	})
}
