package account

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/korjavin/loversspace/pkg/logger"
	"github.com/korjavin/loversspace/pkg/models"
	"github.com/korjavin/loversspace/pkg/storage"
	"github.com/pkg/errors"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrInvalidUsername    = errors.New("username must be 3-32 characters without spaces")
	ErrWeakPassword       = errors.New("password must be at least 6 characters")
	ErrUsernameTaken      = errors.New("username is already taken")
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrInvalidInvite      = errors.New("invite code is invalid or expired")
	ErrSelfInvite         = errors.New("you cannot use your own invite code")
	ErrAlreadyPaired      = errors.New("already bound to a partner")
	ErrNotPaired          = errors.New("no partner to unbind")
	ErrInvalidLinkCode    = errors.New("link code is invalid or expired")
	ErrUserNotFound       = errors.New("user not found")
)

const (
	inviteTTL = 24 * time.Hour
	linkTTL   = 10 * time.Minute
)

// Service provides accounts, sessions and partner binding
type Service struct {
	store      *storage.Store
	logger     *logger.Logger
	sessionTTL time.Duration
	hashCost   int
}

// New creates a new account service
func New(store *storage.Store, sessionTTL time.Duration) *Service {
	return &Service{
		store:      store,
		logger:     logger.New("account"),
		sessionTTL: sessionTTL,
		hashCost:   bcrypt.DefaultCost,
	}
}

func userKey(id int64) string {
	return storage.Key("user", id)
}

func usernameKey(username string) string {
	return "username:" + strings.ToLower(username)
}

func sessionKey(token string) string {
	sum := sha256.Sum256([]byte(token))
	return "session:" + hex.EncodeToString(sum[:])
}

func chatKey(chatID int64) string {
	return fmt.Sprintf("tgchat:%d", chatID)
}

// newCode returns a short random code for invites and Telegram links
func newCode() string {
	return strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
}

func normalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

func validateUsername(username string) error {
	n := utf8.RuneCountInString(username)
	if n < 3 || n > 32 {
		return ErrInvalidUsername
	}
	if strings.IndexFunc(username, unicode.IsSpace) >= 0 {
		return ErrInvalidUsername
	}
	return nil
}

// Register creates a new account
func (s *Service) Register(username, displayName, password string) (*models.User, error) {
	username = strings.TrimSpace(username)
	if err := validateUsername(username); err != nil {
		return nil, err
	}
	if utf8.RuneCountInString(password) < 6 {
		return nil, ErrWeakPassword
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.hashCost)
	if err != nil {
		return nil, errors.Wrap(err, "failed to hash password")
	}

	user := &models.User{
		Username:     username,
		DisplayName:  strings.TrimSpace(displayName),
		PasswordHash: string(hash),
		CreatedAt:    time.Now(),
	}

	err = s.store.Update(func(tx *storage.Tx) error {
		taken, err := tx.Exists(usernameKey(username))
		if err != nil {
			return err
		}
		if taken {
			return ErrUsernameTaken
		}

		user.ID, err = tx.NextID("user")
		if err != nil {
			return err
		}
		if err := tx.Set(userKey(user.ID), user); err != nil {
			return err
		}
		return tx.Set(usernameKey(username), user.ID)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Registered user %s (id %d)", user.Username, user.ID)
	return user, nil
}

// Login checks the credentials and opens a new session
func (s *Service) Login(username, password string) (*models.User, string, time.Time, error) {
	var user models.User
	err := s.store.View(func(tx *storage.Tx) error {
		var id int64
		if err := tx.Get(usernameKey(strings.TrimSpace(username)), &id); err != nil {
			return err
		}
		return tx.Get(userKey(id), &user)
	})
	if err != nil {
		if storage.IsNotFound(err) {
			return nil, "", time.Time{}, ErrInvalidCredentials
		}
		return nil, "", time.Time{}, err
	}

	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		s.logger.Warn("Failed login for %s", user.Username)
		return nil, "", time.Time{}, ErrInvalidCredentials
	}

	now := time.Now()
	token := uuid.NewString()
	session := models.Session{
		UserID:    user.ID,
		CreatedAt: now,
		ExpiresAt: now.Add(s.sessionTTL),
	}
	if err := s.store.SetWithTTL(sessionKey(token), session, s.sessionTTL); err != nil {
		return nil, "", time.Time{}, errors.Wrap(err, "failed to create session")
	}

	s.logger.Info("User %s logged in", user.Username)
	return &user, token, session.ExpiresAt, nil
}

// Logout ends the session for token
func (s *Service) Logout(token string) error {
	if token == "" {
		return nil
	}
	return s.store.Delete(sessionKey(token))
}

// Authenticate resolves a session token into a principal
func (s *Service) Authenticate(token string) (Principal, bool) {
	if token == "" {
		return Principal{}, false
	}

	var principal Principal
	err := s.store.View(func(tx *storage.Tx) error {
		var session models.Session
		if err := tx.Get(sessionKey(token), &session); err != nil {
			return err
		}
		if time.Now().After(session.ExpiresAt) {
			return storage.ErrNotFound
		}
		var err error
		principal, err = loadPrincipal(tx, session.UserID)
		return err
	})
	if err != nil {
		if !storage.IsNotFound(err) {
			s.logger.Error("Failed to authenticate session: %v", err)
		}
		return Principal{}, false
	}
	return principal, true
}

// PrincipalFor loads the principal of a user id
func (s *Service) PrincipalFor(userID int64) (Principal, error) {
	var principal Principal
	err := s.store.View(func(tx *storage.Tx) error {
		var err error
		principal, err = loadPrincipal(tx, userID)
		return err
	})
	if storage.IsNotFound(err) {
		return Principal{}, ErrUserNotFound
	}
	return principal, err
}

func loadPrincipal(tx *storage.Tx, userID int64) (Principal, error) {
	var user models.User
	if err := tx.Get(userKey(userID), &user); err != nil {
		return Principal{}, err
	}

	principal := Principal{User: user}
	if user.PartnerID != nil {
		var partner models.User
		err := tx.Get(userKey(*user.PartnerID), &partner)
		switch {
		case err == nil:
			principal.Partner = &partner
		case storage.IsNotFound(err):
			// dangling link, treat as unpaired
		default:
			return Principal{}, err
		}
	}
	return principal, nil
}

// CreateInvite issues a code the partner can use to bind to this account
func (s *Service) CreateInvite(p Principal) (string, time.Time, error) {
	if p.Partner != nil {
		return "", time.Time{}, ErrAlreadyPaired
	}

	code := newCode()
	if err := s.store.SetWithTTL("invite:"+code, p.ID(), inviteTTL); err != nil {
		return "", time.Time{}, errors.Wrap(err, "failed to store invite")
	}

	s.logger.Info("User %d created an invite", p.ID())
	return code, time.Now().Add(inviteTTL), nil
}

// BindPartner binds p to the owner of the invite code. Both users are
// updated in one transaction; either side already being bound is an error.
func (s *Service) BindPartner(p Principal, code string) (Principal, error) {
	inviteKey := "invite:" + normalizeCode(code)

	var bound Principal
	err := s.store.Update(func(tx *storage.Tx) error {
		var inviterID int64
		if err := tx.Get(inviteKey, &inviterID); err != nil {
			if storage.IsNotFound(err) {
				return ErrInvalidInvite
			}
			return err
		}
		if inviterID == p.ID() {
			return ErrSelfInvite
		}

		var me, inviter models.User
		if err := tx.Get(userKey(p.ID()), &me); err != nil {
			return err
		}
		if err := tx.Get(userKey(inviterID), &inviter); err != nil {
			if storage.IsNotFound(err) {
				return ErrInvalidInvite
			}
			return err
		}
		if me.HasPartner() || inviter.HasPartner() {
			return ErrAlreadyPaired
		}

		me.PartnerID = &inviter.ID
		inviter.PartnerID = &me.ID
		if err := tx.Set(userKey(me.ID), me); err != nil {
			return err
		}
		if err := tx.Set(userKey(inviter.ID), inviter); err != nil {
			return err
		}
		if err := tx.Delete(inviteKey); err != nil {
			return err
		}

		bound = Principal{User: me, Partner: &inviter}
		return nil
	})
	if err != nil {
		return Principal{}, err
	}

	s.logger.Info("Users %d and %d are now partners", bound.User.ID, bound.Partner.ID)
	return bound, nil
}

// Unbind removes the partner link on both sides in one transaction
func (s *Service) Unbind(p Principal) (Principal, error) {
	var unbound Principal
	err := s.store.Update(func(tx *storage.Tx) error {
		var me models.User
		if err := tx.Get(userKey(p.ID()), &me); err != nil {
			return err
		}
		if !me.HasPartner() {
			return ErrNotPaired
		}

		var partner models.User
		err := tx.Get(userKey(*me.PartnerID), &partner)
		switch {
		case err == nil:
			if partner.PartnerID != nil && *partner.PartnerID == me.ID {
				partner.PartnerID = nil
				if err := tx.Set(userKey(partner.ID), partner); err != nil {
					return err
				}
			}
		case !storage.IsNotFound(err):
			return err
		}

		me.PartnerID = nil
		if err := tx.Set(userKey(me.ID), me); err != nil {
			return err
		}
		unbound = Principal{User: me}
		return nil
	})
	if err != nil {
		return Principal{}, err
	}

	s.logger.Info("User %d unbound from partner", p.ID())
	return unbound, nil
}

// CreateTelegramLink issues a short-lived code for the /link bot command
func (s *Service) CreateTelegramLink(p Principal) (string, time.Time, error) {
	code := newCode()
	if err := s.store.SetWithTTL("tglink:"+code, p.ID(), linkTTL); err != nil {
		return "", time.Time{}, errors.Wrap(err, "failed to store link code")
	}
	return code, time.Now().Add(linkTTL), nil
}

// LinkTelegramChat connects a Telegram chat to the account that issued code.
// A chat belongs to one account at a time.
func (s *Service) LinkTelegramChat(code string, chatID int64) (*models.User, error) {
	linkKey := "tglink:" + normalizeCode(code)

	var user models.User
	err := s.store.Update(func(tx *storage.Tx) error {
		var userID int64
		if err := tx.Get(linkKey, &userID); err != nil {
			if storage.IsNotFound(err) {
				return ErrInvalidLinkCode
			}
			return err
		}
		if err := tx.Get(userKey(userID), &user); err != nil {
			return err
		}

		var previousID int64
		err := tx.Get(chatKey(chatID), &previousID)
		if err != nil && !storage.IsNotFound(err) {
			return err
		}
		if err == nil && previousID != userID {
			var previous models.User
			if err := tx.Get(userKey(previousID), &previous); err == nil {
				previous.TelegramChatID = 0
				if err := tx.Set(userKey(previous.ID), previous); err != nil {
					return err
				}
			}
		}
		if user.TelegramChatID != 0 && user.TelegramChatID != chatID {
			if err := tx.Delete(chatKey(user.TelegramChatID)); err != nil {
				return err
			}
		}

		user.TelegramChatID = chatID
		if err := tx.Set(userKey(user.ID), user); err != nil {
			return err
		}
		if err := tx.Set(chatKey(chatID), user.ID); err != nil {
			return err
		}
		return tx.Delete(linkKey)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Linked Telegram chat %d to user %d", chatID, user.ID)
	return &user, nil
}

// PrincipalForChat resolves the account linked to a Telegram chat
func (s *Service) PrincipalForChat(chatID int64) (Principal, error) {
	var userID int64
	if err := s.store.Get(chatKey(chatID), &userID); err != nil {
		if storage.IsNotFound(err) {
			return Principal{}, ErrUserNotFound
		}
		return Principal{}, err
	}
	return s.PrincipalFor(userID)
}

// LinkedUsers returns every user with a linked Telegram chat
func (s *Service) LinkedUsers() ([]models.User, error) {
	keys, err := s.store.List("user:")
	if err != nil {
		return nil, errors.Wrap(err, "failed to list users")
	}

	var users []models.User
	for _, key := range keys {
		var user models.User
		if err := s.store.Get(key, &user); err != nil {
			s.logger.Error("Failed to get user %s: %v", key, err)
			continue
		}
		if user.TelegramChatID != 0 {
			users = append(users, user)
		}
	}
	return users, nil
}
