package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/growcoach/jobboard/internal/models"
	"github.com/growcoach/jobboard/pkg/crypto"
	apperrors "github.com/growcoach/jobboard/pkg/errors"
	"github.com/growcoach/jobboard/pkg/logger"
	"github.com/growcoach/jobboard/pkg/metrics"
)

// CandidateRegistration is the candidate signup payload.
type CandidateRegistration struct {
	FirstName       string `json:"first_name" form:"first_name" validate:"required,max=120"`
	LastName        string `json:"last_name" form:"last_name" validate:"required,max=120"`
	Email           string `json:"email" form:"email" validate:"required,email"`
	Password        string `json:"password" form:"password" validate:"required,password"`
	ConfirmPassword string `json:"confirm_password" form:"confirm_password" validate:"required,eqfield=Password"`
	Phone           string `json:"phone" form:"phone" validate:"max=64"`
	Location        string `json:"location" form:"location" validate:"max=255"`
	TermsAccepted   bool   `json:"terms_accepted" form:"terms_accepted"`
	Avatar          string `json:"-" form:"-"`
	Resume          string `json:"-" form:"-"`

	// Optional profile content captured at signup.
	Bio                   string          `json:"bio" form:"bio"`
	Skills                []string        `json:"skills" form:"-"`
	HasGrowcoachFormation bool            `json:"has_growcoach_formation" form:"has_growcoach_formation"`
	Education             json.RawMessage `json:"education" form:"-"`
	Experience            json.RawMessage `json:"experience" form:"-"`
	ProfessionalFormation json.RawMessage `json:"professional_formation" form:"-"`
	Projects              json.RawMessage `json:"projects" form:"-"`
	GrowcoachFormation    json.RawMessage `json:"growcoach_formation" form:"-"`
}

// CompanyRegistration is the company signup payload.
type CompanyRegistration struct {
	CompanyName     string `json:"company_name" form:"company_name" validate:"required,max=255"`
	Email           string `json:"email" form:"email" validate:"required,email"`
	Password        string `json:"password" form:"password" validate:"required,password"`
	ConfirmPassword string `json:"confirm_password" form:"confirm_password" validate:"required,eqfield=Password"`
	Industry        string `json:"industry" form:"industry" validate:"required,max=255"`
	Phone           string `json:"phone" form:"phone" validate:"max=64"`
	Location        string `json:"location" form:"location" validate:"max=255"`
	Website         string `json:"website" form:"website" validate:"max=512"`
	Description     string `json:"description" form:"description"`
	CompanySize     string `json:"company_size" form:"company_size" validate:"max=64"`
	FoundedYear     int    `json:"founded_year" form:"founded_year"`
	TermsAccepted   bool   `json:"terms_accepted" form:"terms_accepted"`
	Logo            string `json:"-" form:"-"`
}

// RegisterInput is the generic JSON registration used by /auth/register.
type RegisterInput struct {
	Role            models.AccountRole `json:"role" validate:"required,oneof=candidate company"`
	Email           string             `json:"email"`
	Password        string             `json:"password"`
	ConfirmPassword string             `json:"confirm_password"`
	FirstName       string             `json:"first_name"`
	LastName        string             `json:"last_name"`
	CompanyName     string             `json:"company_name"`
	Industry        string             `json:"industry"`
	TermsAccepted   bool               `json:"terms_accepted"`
}

// CandidateProfileUpdate lists the fields a candidate may change. Nil fields
// are left untouched.
type CandidateProfileUpdate struct {
	FirstName             *string         `json:"first_name"`
	LastName              *string         `json:"last_name"`
	Phone                 *string         `json:"phone"`
	Location              *string         `json:"location"`
	Bio                   *string         `json:"bio"`
	Skills                []string        `json:"skills"`
	Education             json.RawMessage `json:"education"`
	Experience            json.RawMessage `json:"experience"`
	ProfessionalFormation json.RawMessage `json:"professional_formation"`
	Projects              json.RawMessage `json:"projects"`
	HasGrowcoachFormation *bool           `json:"has_growcoach_formation"`
	GrowcoachFormation    json.RawMessage `json:"growcoach_formation"`
	Avatar                *string         `json:"-"`
	Resume                *string         `json:"-"`
}

// CompanyProfileUpdate lists the fields a company may change.
type CompanyProfileUpdate struct {
	CompanyName *string `json:"company_name"`
	Phone       *string `json:"phone"`
	Location    *string `json:"location"`
	Description *string `json:"description"`
	Website     *string `json:"website"`
	Industry    *string `json:"industry"`
	FoundedYear *int    `json:"founded_year"`
	CompanySize *string `json:"company_size"`
	Logo        *string `json:"-"`
}

// UserFilter narrows the admin user listing.
type UserFilter struct {
	Role                  models.AccountRole
	Status                models.AccountStatus
	Name                  string
	SortOrder             string
	HasGrowcoachFormation *bool
	Page                  int
	PerPage               int
}

// CandidateFilter narrows the company candidate browser.
type CandidateFilter struct {
	Query   string
	Skill   string
	Page    int
	PerPage int
}

// Dashboard summarises a candidate's home screen.
type Dashboard struct {
	Name              string   `json:"name"`
	ProfileCompletion int      `json:"profile_completion"`
	ProfileComplete   bool     `json:"profile_complete"`
	ApplicationsCount int64    `json:"applications_count"`
	RecentJobs        []JobDTO `json:"recent_jobs"`
}

// Stats is the admin overview.
type Stats struct {
	TotalCandidates      int64 `json:"total_candidates"`
	TotalCompanies       int64 `json:"total_companies"`
	PendingCandidates    int64 `json:"pending_candidates"`
	PendingCompanies     int64 `json:"pending_companies"`
	ActiveCandidates     int64 `json:"active_candidates"`
	ActiveCompanies      int64 `json:"active_companies"`
	RecentCandidates     int64 `json:"recent_candidates"`
	RecentCompanies      int64 `json:"recent_companies"`
	TotalJobs            int64 `json:"total_jobs"`
	ActiveJobs           int64 `json:"active_jobs"`
	TotalApplications    int64 `json:"total_applications"`
	PendingNotifications int64 `json:"pending_notifications"`
}

// VerificationStatus reports a company's verification state.
type VerificationStatus struct {
	Verified bool                 `json:"verified"`
	Pending  bool                 `json:"pending"`
	Status   models.AccountStatus `json:"status"`
}

// OAuthProfile carries the identity returned by an external provider.
type OAuthProfile struct {
	Provider  string
	Subject   string
	Email     string
	FirstName string
	LastName  string
}

const (
	completionCriteria       = 10
	profileCompleteThreshold = 80
	recentJobsLimit          = 10
)

// Page size caps for the admin user list and the company candidate browser.
const (
	MaxUsersPerPage      = 100
	MaxCandidatesPerPage = 50
)

// AccountService owns registration, profiles and admin account management.
type AccountService struct {
	db            *gorm.DB
	notifications *NotificationService
	now           func() time.Time
	log           *zap.Logger
}

// NewAccountService constructs an AccountService.
func NewAccountService(db *gorm.DB, notifications *NotificationService) (*AccountService, error) {
	if db == nil {
		return nil, errors.New("account service: db is required")
	}
	if notifications == nil {
		return nil, errors.New("account service: notification service is required")
	}
	return &AccountService{
		db:            db,
		notifications: notifications,
		now:           func() time.Time { return time.Now().UTC() },
		log:           logger.WithModule("accounts"),
	}, nil
}

// RegisterCandidate creates a pending candidate and its registration
// notification atomically.
func (s *AccountService) RegisterCandidate(ctx context.Context, input CandidateRegistration) (*AccountDTO, error) {
	ctx = ensureContext(ctx)
	input.FirstName = strings.TrimSpace(input.FirstName)
	input.LastName = strings.TrimSpace(input.LastName)
	input.Email = models.NormaliseEmail(input.Email)
	if err := validateInput(input); err != nil {
		return nil, err
	}

	sections := make(map[string]datatypes.JSON, 5)
	for _, section := range []struct {
		name string
		raw  json.RawMessage
	}{
		{SectionEducation, input.Education},
		{SectionExperience, input.Experience},
		{SectionProfessionalFormation, input.ProfessionalFormation},
		{SectionProjects, input.Projects},
		{SectionGrowcoachFormation, input.GrowcoachFormation},
	} {
		value, err := validateSection(section.name, section.raw)
		if err != nil {
			return nil, err
		}
		sections[section.name] = value
	}

	hash, err := crypto.HashPassword(input.Password)
	if err != nil {
		return nil, fmt.Errorf("account service: hash password: %w", err)
	}

	account := &models.Account{
		Email:         input.Email,
		Password:      hash,
		Role:          models.RoleCandidate,
		Status:        models.StatusPending,
		TermsAccepted: input.TermsAccepted,
		AuthProvider:  models.AuthProviderLocal,
		CandidateProfile: &models.CandidateProfile{
			FirstName:             input.FirstName,
			LastName:              input.LastName,
			Phone:                 strings.TrimSpace(input.Phone),
			Location:              strings.TrimSpace(input.Location),
			Bio:                   strings.TrimSpace(input.Bio),
			Skills:                datatypes.JSONSlice[string](normaliseSkills(input.Skills)),
			Avatar:                input.Avatar,
			Resume:                input.Resume,
			HasGrowcoachFormation: input.HasGrowcoachFormation,
			Education:             sections[SectionEducation],
			Experience:            sections[SectionExperience],
			ProfessionalFormation: sections[SectionProfessionalFormation],
			Projects:              sections[SectionProjects],
			GrowcoachFormation:    sections[SectionGrowcoachFormation],
		},
	}

	text := fmt.Sprintf("New candidate registration: %s %s", input.FirstName, input.LastName)
	if err := s.register(ctx, account, models.NotificationCandidateRegistration, text); err != nil {
		return nil, err
	}
	return toAccountDTO(account), nil
}

// RegisterCompany creates a pending, unverified company and its registration
// notification atomically.
func (s *AccountService) RegisterCompany(ctx context.Context, input CompanyRegistration) (*AccountDTO, error) {
	ctx = ensureContext(ctx)
	input.CompanyName = strings.TrimSpace(input.CompanyName)
	input.Industry = strings.TrimSpace(input.Industry)
	input.Email = models.NormaliseEmail(input.Email)
	if err := validateInput(input); err != nil {
		return nil, err
	}
	if year := input.FoundedYear; year != 0 && (year < 1800 || year > s.now().Year()) {
		return nil, validationError("founded_year is out of range")
	}

	hash, err := crypto.HashPassword(input.Password)
	if err != nil {
		return nil, fmt.Errorf("account service: hash password: %w", err)
	}

	account := &models.Account{
		Email:         input.Email,
		Password:      hash,
		Role:          models.RoleCompany,
		Status:        models.StatusPending,
		Verified:      false,
		TermsAccepted: input.TermsAccepted,
		AuthProvider:  models.AuthProviderLocal,
		CompanyProfile: &models.CompanyProfile{
			CompanyName: input.CompanyName,
			Industry:    input.Industry,
			Phone:       strings.TrimSpace(input.Phone),
			Location:    strings.TrimSpace(input.Location),
			Website:     strings.TrimSpace(input.Website),
			Description: strings.TrimSpace(input.Description),
			CompanySize: strings.TrimSpace(input.CompanySize),
			FoundedYear: input.FoundedYear,
			Logo:        input.Logo,
		},
	}

	text := fmt.Sprintf("New company registration: %s", input.CompanyName)
	if err := s.register(ctx, account, models.NotificationCompanyRegistration, text); err != nil {
		return nil, err
	}
	return toAccountDTO(account), nil
}

// Register dispatches the generic JSON registration to the role specific flow.
func (s *AccountService) Register(ctx context.Context, input RegisterInput) (*AccountDTO, error) {
	input.Role = models.AccountRole(strings.ToLower(strings.TrimSpace(string(input.Role))))
	if err := validateInput(input); err != nil {
		return nil, err
	}

	switch input.Role {
	case models.RoleCandidate:
		return s.RegisterCandidate(ctx, CandidateRegistration{
			FirstName:       input.FirstName,
			LastName:        input.LastName,
			Email:           input.Email,
			Password:        input.Password,
			ConfirmPassword: input.ConfirmPassword,
			TermsAccepted:   input.TermsAccepted,
		})
	default:
		return s.RegisterCompany(ctx, CompanyRegistration{
			CompanyName:     input.CompanyName,
			Email:           input.Email,
			Password:        input.Password,
			ConfirmPassword: input.ConfirmPassword,
			Industry:        input.Industry,
			TermsAccepted:   input.TermsAccepted,
		})
	}
}

func (s *AccountService) register(ctx context.Context, account *models.Account, kind models.NotificationType, text string) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing int64
		if err := tx.Model(&models.Account{}).Where("email = ?", account.Email).Count(&existing).Error; err != nil {
			return fmt.Errorf("account service: check email: %w", err)
		}
		if existing > 0 {
			return ErrEmailTaken
		}

		if err := tx.Create(account).Error; err != nil {
			if isUniqueConstraintError(err) {
				return ErrEmailTaken
			}
			return fmt.Errorf("account service: create account: %w", err)
		}

		_, err := s.notifications.EnqueueTx(tx, kind, account.ID, text)
		return err
	})
	if err != nil {
		return err
	}

	metrics.Registrations.WithLabelValues(string(account.Role)).Inc()
	s.log.Info("account registered",
		zap.String("account_id", account.ID),
		zap.String("role", string(account.Role)),
	)
	return nil
}

// GetAccount loads an account with its profile.
func (s *AccountService) GetAccount(ctx context.Context, accountID string) (*models.Account, error) {
	ctx = ensureContext(ctx)
	return loadAccount(s.db.WithContext(ctx), strings.TrimSpace(accountID))
}

// GetByEmail loads an account by its normalised email.
func (s *AccountService) GetByEmail(ctx context.Context, email string) (*models.Account, error) {
	ctx = ensureContext(ctx)
	email = models.NormaliseEmail(email)
	if email == "" {
		return nil, ErrAccountNotFound
	}

	var account models.Account
	err := s.db.WithContext(ctx).
		Preload("CandidateProfile").
		Preload("CompanyProfile").
		First(&account, "email = ?", email).Error
	if err != nil {
		if isNotFound(err) {
			return nil, ErrAccountNotFound
		}
		return nil, fmt.Errorf("account service: get by email: %w", err)
	}
	return &account, nil
}

// GetProfile returns the role specific view of an account.
func (s *AccountService) GetProfile(ctx context.Context, accountID string) (*AccountDTO, error) {
	account, err := s.GetAccount(ctx, accountID)
	if err != nil {
		return nil, err
	}
	return toAccountDTO(account), nil
}

func loadAccount(db *gorm.DB, accountID string) (*models.Account, error) {
	if accountID == "" {
		return nil, ErrAccountNotFound
	}
	var account models.Account
	err := db.Preload("CandidateProfile").Preload("CompanyProfile").First(&account, "id = ?", accountID).Error
	if err != nil {
		if isNotFound(err) {
			return nil, ErrAccountNotFound
		}
		return nil, fmt.Errorf("account service: load account: %w", err)
	}
	return &account, nil
}

func loadRoleAccount(db *gorm.DB, accountID string, role models.AccountRole) (*models.Account, error) {
	account, err := loadAccount(db, accountID)
	if err != nil {
		return nil, err
	}
	if account.Role != role {
		return nil, apperrors.NewForbidden(fmt.Sprintf("Only %s accounts can perform this action", role))
	}
	return account, nil
}

// UpdateCandidateProfile applies the allowed candidate fields. Status and
// verification are never touched here.
func (s *AccountService) UpdateCandidateProfile(ctx context.Context, accountID string, input CandidateProfileUpdate) (*AccountDTO, error) {
	ctx = ensureContext(ctx)

	updates := map[string]any{}
	setString := func(column string, value *string, required bool) error {
		if value == nil {
			return nil
		}
		v := strings.TrimSpace(*value)
		if required && v == "" {
			return validationError(fmt.Sprintf("%s cannot be empty", column))
		}
		updates[column] = v
		return nil
	}
	for _, field := range []struct {
		column   string
		value    *string
		required bool
	}{
		{"first_name", input.FirstName, true},
		{"last_name", input.LastName, true},
		{"phone", input.Phone, false},
		{"location", input.Location, false},
		{"bio", input.Bio, false},
		{"avatar", input.Avatar, false},
		{"resume", input.Resume, false},
	} {
		if err := setString(field.column, field.value, field.required); err != nil {
			return nil, err
		}
	}
	if input.Skills != nil {
		updates["skills"] = datatypes.JSONSlice[string](normaliseSkills(input.Skills))
	}
	if input.HasGrowcoachFormation != nil {
		updates["has_growcoach_formation"] = *input.HasGrowcoachFormation
	}
	for _, section := range []struct {
		name string
		raw  json.RawMessage
	}{
		{SectionEducation, input.Education},
		{SectionExperience, input.Experience},
		{SectionProfessionalFormation, input.ProfessionalFormation},
		{SectionProjects, input.Projects},
		{SectionGrowcoachFormation, input.GrowcoachFormation},
	} {
		if section.raw == nil {
			continue
		}
		value, err := validateSection(section.name, section.raw)
		if err != nil {
			return nil, err
		}
		updates[section.name] = value
	}

	var account *models.Account
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		account, err = loadRoleAccount(tx, accountID, models.RoleCandidate)
		if err != nil {
			return err
		}
		if account.CandidateProfile == nil {
			return fmt.Errorf("account service: candidate %s has no profile", account.ID)
		}
		if len(updates) == 0 {
			return nil
		}
		if err := tx.Model(&models.CandidateProfile{}).Where("id = ?", account.CandidateProfile.ID).Updates(updates).Error; err != nil {
			return fmt.Errorf("account service: update candidate profile: %w", err)
		}
		account, err = loadAccount(tx, account.ID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return toAccountDTO(account), nil
}

// UpdateCompanyProfile applies the allowed company fields.
func (s *AccountService) UpdateCompanyProfile(ctx context.Context, accountID string, input CompanyProfileUpdate) (*AccountDTO, error) {
	ctx = ensureContext(ctx)

	updates := map[string]any{}
	if v := trimmed(input.CompanyName); v != nil {
		if *v == "" {
			return nil, validationError("company_name cannot be empty")
		}
		updates["company_name"] = *v
	}
	for column, value := range map[string]*string{
		"phone":        input.Phone,
		"location":     input.Location,
		"description":  input.Description,
		"website":      input.Website,
		"industry":     input.Industry,
		"company_size": input.CompanySize,
		"logo":         input.Logo,
	} {
		if v := trimmed(value); v != nil {
			updates[column] = *v
		}
	}
	if input.FoundedYear != nil {
		year := *input.FoundedYear
		if year != 0 && (year < 1800 || year > s.now().Year()) {
			return nil, validationError("founded_year is out of range")
		}
		updates["founded_year"] = year
	}

	var account *models.Account
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		account, err = loadRoleAccount(tx, accountID, models.RoleCompany)
		if err != nil {
			return err
		}
		if account.CompanyProfile == nil {
			return fmt.Errorf("account service: company %s has no profile", account.ID)
		}
		if len(updates) == 0 {
			return nil
		}
		if err := tx.Model(&models.CompanyProfile{}).Where("id = ?", account.CompanyProfile.ID).Updates(updates).Error; err != nil {
			return fmt.Errorf("account service: update company profile: %w", err)
		}
		account, err = loadAccount(tx, account.ID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return toAccountDTO(account), nil
}

// ProfileCompletion returns the percentage of the ten completion criteria a
// candidate meets.
func (s *AccountService) ProfileCompletion(ctx context.Context, candidateID string) (int, error) {
	ctx = ensureContext(ctx)
	account, err := loadRoleAccount(s.db.WithContext(ctx), strings.TrimSpace(candidateID), models.RoleCandidate)
	if err != nil {
		return 0, err
	}
	return profileCompletion(account), nil
}

func profileCompletion(account *models.Account) int {
	profile := account.CandidateProfile
	if profile == nil {
		return 0
	}
	checks := []bool{
		strings.TrimSpace(profile.FirstName) != "",
		strings.TrimSpace(profile.LastName) != "",
		strings.TrimSpace(account.Email) != "",
		strings.TrimSpace(profile.Phone) != "",
		strings.TrimSpace(profile.Location) != "",
		strings.TrimSpace(profile.Bio) != "",
		sectionLen(profile.Education) > 0,
		sectionLen(profile.Experience) > 0,
		len(profile.Skills) > 0,
		strings.TrimSpace(profile.Avatar) != "",
	}
	done := 0
	for _, ok := range checks {
		if ok {
			done++
		}
	}
	return done * 100 / completionCriteria
}

// Dashboard assembles the candidate home screen.
func (s *AccountService) Dashboard(ctx context.Context, candidateID string) (*Dashboard, error) {
	ctx = ensureContext(ctx)
	db := s.db.WithContext(ctx)

	account, err := loadRoleAccount(db, strings.TrimSpace(candidateID), models.RoleCandidate)
	if err != nil {
		return nil, err
	}

	var applications int64
	if err := db.Model(&models.JobApplication{}).Where("candidate_id = ?", account.ID).Count(&applications).Error; err != nil {
		return nil, fmt.Errorf("account service: count applications: %w", err)
	}

	jobs, err := recentActiveJobs(db, recentJobsLimit)
	if err != nil {
		return nil, err
	}

	completion := profileCompletion(account)
	return &Dashboard{
		Name:              account.DisplayName(),
		ProfileCompletion: completion,
		ProfileComplete:   completion >= profileCompleteThreshold,
		ApplicationsCount: applications,
		RecentJobs:        jobs,
	}, nil
}

// ListUsers returns candidates and companies for the admin console.
func (s *AccountService) ListUsers(ctx context.Context, filter UserFilter) ([]AccountDTO, int64, error) {
	ctx = ensureContext(ctx)
	page, perPage := ClampPage(filter.Page, filter.PerPage, MaxUsersPerPage)
	if filter.PerPage <= 0 {
		perPage = MaxUsersPerPage
	}

	query := s.db.WithContext(ctx).
		Model(&models.Account{}).
		Joins("LEFT JOIN candidate_profiles ON candidate_profiles.account_id = accounts.id").
		Joins("LEFT JOIN company_profiles ON company_profiles.account_id = accounts.id").
		Where("accounts.role <> ?", models.RoleAdmin)

	if filter.Role != "" {
		if filter.Role != models.RoleCandidate && filter.Role != models.RoleCompany {
			return nil, 0, validationError("type must be candidate or company")
		}
		query = query.Where("accounts.role = ?", filter.Role)
	}
	if filter.Status != "" {
		if !filter.Status.Valid() {
			return nil, 0, validationError("status is invalid")
		}
		query = query.Where("accounts.status = ?", filter.Status)
	}
	if name := strings.TrimSpace(filter.Name); name != "" {
		pattern := likePattern(name)
		query = query.Where(
			"LOWER(candidate_profiles.first_name) LIKE ? OR LOWER(candidate_profiles.last_name) LIKE ? OR LOWER(company_profiles.company_name) LIKE ? OR LOWER(accounts.email) LIKE ?",
			pattern, pattern, pattern, pattern,
		)
	}
	if filter.HasGrowcoachFormation != nil {
		query = query.Where("candidate_profiles.has_growcoach_formation = ?", *filter.HasGrowcoachFormation)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("account service: count users: %w", err)
	}

	order := "accounts.created_at DESC"
	if strings.EqualFold(strings.TrimSpace(filter.SortOrder), "asc") {
		order = "accounts.created_at ASC"
	}

	var accounts []models.Account
	err := query.
		Select("accounts.*").
		Preload("CandidateProfile").
		Preload("CompanyProfile").
		Order(order).
		Offset((page - 1) * perPage).
		Limit(perPage).
		Find(&accounts).Error
	if err != nil {
		return nil, 0, fmt.Errorf("account service: list users: %w", err)
	}

	out := make([]AccountDTO, 0, len(accounts))
	for i := range accounts {
		out = append(out, *toAccountDTO(&accounts[i]))
	}
	return out, total, nil
}

// Delete removes a candidate or company with everything that references it.
// The returned file names belong to the removed account.
func (s *AccountService) Delete(ctx context.Context, accountID string) ([]string, error) {
	ctx = ensureContext(ctx)
	var files []string

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		account, err := loadAccount(tx, strings.TrimSpace(accountID))
		if err != nil {
			return err
		}
		if account.Role == models.RoleAdmin {
			return apperrors.NewForbidden("Admin accounts cannot be deleted")
		}

		switch account.Role {
		case models.RoleCandidate:
			if p := account.CandidateProfile; p != nil {
				files = append(files, p.Avatar, p.Resume, p.AdminCV)
			}
			if err := tx.Where("candidate_id = ?", account.ID).Delete(&models.JobApplication{}).Error; err != nil {
				return fmt.Errorf("account service: delete applications: %w", err)
			}
			if err := tx.Where("candidate_id = ?", account.ID).Delete(&models.SavedJob{}).Error; err != nil {
				return fmt.Errorf("account service: delete saved jobs: %w", err)
			}
			if err := tx.Where("account_id = ?", account.ID).Delete(&models.CandidateProfile{}).Error; err != nil {
				return fmt.Errorf("account service: delete candidate profile: %w", err)
			}
		case models.RoleCompany:
			if p := account.CompanyProfile; p != nil {
				files = append(files, p.Logo)
			}
			jobIDs := tx.Model(&models.Job{}).Select("id").Where("company_id = ?", account.ID)
			if err := tx.Where("job_id IN (?)", jobIDs).Delete(&models.JobApplication{}).Error; err != nil {
				return fmt.Errorf("account service: delete job applications: %w", err)
			}
			if err := tx.Where("job_id IN (?)", jobIDs).Delete(&models.SavedJob{}).Error; err != nil {
				return fmt.Errorf("account service: delete saved jobs: %w", err)
			}
			if err := tx.Where("company_id = ?", account.ID).Delete(&models.Job{}).Error; err != nil {
				return fmt.Errorf("account service: delete jobs: %w", err)
			}
			if err := tx.Where("account_id = ?", account.ID).Delete(&models.CompanyProfile{}).Error; err != nil {
				return fmt.Errorf("account service: delete company profile: %w", err)
			}
		}

		if err := tx.Where("target_account_id = ?", account.ID).Delete(&models.Notification{}).Error; err != nil {
			return fmt.Errorf("account service: delete notifications: %w", err)
		}
		if err := tx.Where("account_id = ?", account.ID).Delete(&models.PasswordResetCode{}).Error; err != nil {
			return fmt.Errorf("account service: delete reset codes: %w", err)
		}
		if err := tx.Delete(&models.Account{}, "id = ?", account.ID).Error; err != nil {
			return fmt.Errorf("account service: delete account: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("account deleted", zap.String("account_id", accountID))

	out := files[:0]
	for _, name := range files {
		if name != "" {
			out = append(out, name)
		}
	}
	return out, nil
}

// Stats gathers the admin dashboard counters.
func (s *AccountService) Stats(ctx context.Context) (*Stats, error) {
	ctx = ensureContext(ctx)
	db := s.db.WithContext(ctx)
	since := s.now().AddDate(0, 0, -30)

	stats := &Stats{}
	counts := []struct {
		target *int64
		query  func() *gorm.DB
	}{
		{&stats.TotalCandidates, func() *gorm.DB { return db.Model(&models.Account{}).Where("role = ?", models.RoleCandidate) }},
		{&stats.TotalCompanies, func() *gorm.DB { return db.Model(&models.Account{}).Where("role = ?", models.RoleCompany) }},
		{&stats.PendingCandidates, func() *gorm.DB {
			return db.Model(&models.Account{}).Where("role = ? AND status = ?", models.RoleCandidate, models.StatusPending)
		}},
		{&stats.PendingCompanies, func() *gorm.DB {
			return db.Model(&models.Account{}).Where("role = ? AND status = ?", models.RoleCompany, models.StatusPending)
		}},
		{&stats.ActiveCandidates, func() *gorm.DB {
			return db.Model(&models.Account{}).Where("role = ? AND status = ?", models.RoleCandidate, models.StatusActive)
		}},
		{&stats.ActiveCompanies, func() *gorm.DB {
			return db.Model(&models.Account{}).Where("role = ? AND status = ?", models.RoleCompany, models.StatusActive)
		}},
		{&stats.RecentCandidates, func() *gorm.DB {
			return db.Model(&models.Account{}).Where("role = ? AND created_at >= ?", models.RoleCandidate, since)
		}},
		{&stats.RecentCompanies, func() *gorm.DB {
			return db.Model(&models.Account{}).Where("role = ? AND created_at >= ?", models.RoleCompany, since)
		}},
		{&stats.TotalJobs, func() *gorm.DB { return db.Model(&models.Job{}) }},
		{&stats.ActiveJobs, func() *gorm.DB { return db.Model(&models.Job{}).Where("status = ?", models.JobActive) }},
		{&stats.TotalApplications, func() *gorm.DB { return db.Model(&models.JobApplication{}) }},
		{&stats.PendingNotifications, func() *gorm.DB { return db.Model(&models.Notification{}) }},
	}
	for _, c := range counts {
		if err := c.query().Count(c.target).Error; err != nil {
			return nil, fmt.Errorf("account service: stats: %w", err)
		}
	}
	return stats, nil
}

// SetAdminCV records the admin curated CV for a candidate and returns the
// previous file name.
func (s *AccountService) SetAdminCV(ctx context.Context, candidateID, filename string) (string, error) {
	ctx = ensureContext(ctx)
	var previous string
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		account, err := loadRoleAccount(tx, strings.TrimSpace(candidateID), models.RoleCandidate)
		if err != nil {
			return err
		}
		previous = account.CandidateProfile.AdminCV
		return tx.Model(&models.CandidateProfile{}).
			Where("id = ?", account.CandidateProfile.ID).
			Update("admin_cv", filename).Error
	})
	if err != nil {
		return "", err
	}
	return previous, nil
}

// AdminCV returns the admin CV file name for a candidate.
func (s *AccountService) AdminCV(ctx context.Context, candidateID string) (string, error) {
	ctx = ensureContext(ctx)
	account, err := loadRoleAccount(s.db.WithContext(ctx), strings.TrimSpace(candidateID), models.RoleCandidate)
	if err != nil {
		return "", err
	}
	if account.CandidateProfile == nil || account.CandidateProfile.AdminCV == "" {
		return "", ErrFileNotFound
	}
	return account.CandidateProfile.AdminCV, nil
}

// RequestVerification opens a verification request for a company. Only one
// request can be pending at a time.
func (s *AccountService) RequestVerification(ctx context.Context, companyID string) (*NotificationDTO, error) {
	ctx = ensureContext(ctx)
	account, err := loadRoleAccount(s.db.WithContext(ctx), strings.TrimSpace(companyID), models.RoleCompany)
	if err != nil {
		return nil, err
	}

	pending, err := s.notifications.HasPending(ctx, models.NotificationVerificationRequest, account.ID)
	if err != nil {
		return nil, err
	}
	if pending {
		return nil, ErrVerificationPending
	}

	text := fmt.Sprintf("%s requested verification", account.DisplayName())
	notification, err := s.notifications.Enqueue(ctx, models.NotificationVerificationRequest, account.ID, text)
	if errors.Is(err, ErrRequestPending) {
		return nil, ErrVerificationPending
	}
	return notification, err
}

// VerificationStatus reports whether the company is verified or waiting.
func (s *AccountService) VerificationStatus(ctx context.Context, companyID string) (*VerificationStatus, error) {
	ctx = ensureContext(ctx)
	account, err := loadRoleAccount(s.db.WithContext(ctx), strings.TrimSpace(companyID), models.RoleCompany)
	if err != nil {
		return nil, err
	}
	pending, err := s.notifications.HasPending(ctx, models.NotificationVerificationRequest, account.ID)
	if err != nil {
		return nil, err
	}
	return &VerificationStatus{Verified: account.Verified, Pending: pending, Status: account.Status}, nil
}

// BrowseCandidates lists active candidates for companies.
func (s *AccountService) BrowseCandidates(ctx context.Context, filter CandidateFilter) ([]AccountDTO, int64, error) {
	ctx = ensureContext(ctx)
	page, perPage := ClampPage(filter.Page, filter.PerPage, MaxCandidatesPerPage)
	db := s.db.WithContext(ctx)

	query := db.Model(&models.Account{}).
		Joins("JOIN candidate_profiles ON candidate_profiles.account_id = accounts.id").
		Where("accounts.role = ? AND accounts.status = ?", models.RoleCandidate, models.StatusActive)

	skills := textColumn(db, "candidate_profiles.skills")
	if q := strings.TrimSpace(filter.Query); q != "" {
		pattern := likePattern(q)
		query = query.Where(
			"LOWER(candidate_profiles.first_name) LIKE ? OR LOWER(candidate_profiles.last_name) LIKE ? OR LOWER("+skills+") LIKE ?",
			pattern, pattern, pattern,
		)
	}
	if skill := strings.TrimSpace(filter.Skill); skill != "" {
		query = query.Where("LOWER("+skills+") LIKE ?", likePattern(skill))
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("account service: count candidates: %w", err)
	}

	var accounts []models.Account
	err := query.Select("accounts.*").
		Preload("CandidateProfile").
		Order("accounts.created_at DESC").
		Offset((page - 1) * perPage).
		Limit(perPage).
		Find(&accounts).Error
	if err != nil {
		return nil, 0, fmt.Errorf("account service: browse candidates: %w", err)
	}

	out := make([]AccountDTO, 0, len(accounts))
	for i := range accounts {
		dto := toAccountDTO(&accounts[i])
		if dto.Candidate != nil {
			profile := *dto.Candidate
			profile.AdminCV = ""
			dto.Candidate = &profile
		}
		out = append(out, *dto)
	}
	return out, total, nil
}

// ResolveOAuthCandidate returns the account for an external identity,
// creating an active candidate on first sign in.
func (s *AccountService) ResolveOAuthCandidate(ctx context.Context, profile OAuthProfile) (*models.Account, bool, error) {
	ctx = ensureContext(ctx)
	email := models.NormaliseEmail(profile.Email)
	if email == "" {
		return nil, false, validationError("Identity provider did not return an email")
	}

	existing, err := s.GetByEmail(ctx, email)
	if err == nil {
		return existing, false, nil
	}
	if !errors.Is(err, ErrAccountNotFound) {
		return nil, false, err
	}

	secret, err := crypto.GenerateToken(32)
	if err != nil {
		return nil, false, fmt.Errorf("account service: generate password: %w", err)
	}
	hash, err := crypto.HashPassword(secret)
	if err != nil {
		return nil, false, fmt.Errorf("account service: hash password: %w", err)
	}

	provider := strings.TrimSpace(profile.Provider)
	if provider == "" {
		provider = models.AuthProviderGoogle
	}
	firstName := strings.TrimSpace(profile.FirstName)
	if firstName == "" {
		firstName = strings.SplitN(email, "@", 2)[0]
	}

	account := &models.Account{
		Email:           email,
		Password:        hash,
		Role:            models.RoleCandidate,
		Status:          models.StatusActive,
		TermsAccepted:   true,
		AuthProvider:    provider,
		ProviderSubject: strings.TrimSpace(profile.Subject),
		CandidateProfile: &models.CandidateProfile{
			FirstName:             firstName,
			LastName:              strings.TrimSpace(profile.LastName),
			Skills:                datatypes.JSONSlice[string]{},
			Education:             datatypes.JSON("[]"),
			Experience:            datatypes.JSON("[]"),
			ProfessionalFormation: datatypes.JSON("[]"),
			Projects:              datatypes.JSON("[]"),
			GrowcoachFormation:    datatypes.JSON("[]"),
		},
	}
	if err := s.db.WithContext(ctx).Create(account).Error; err != nil {
		if isUniqueConstraintError(err) {
			existing, lookupErr := s.GetByEmail(ctx, email)
			if lookupErr != nil {
				return nil, false, lookupErr
			}
			return existing, false, nil
		}
		return nil, false, fmt.Errorf("account service: create oauth account: %w", err)
	}

	metrics.Registrations.WithLabelValues(string(account.Role)).Inc()
	s.log.Info("oauth candidate created", zap.String("account_id", account.ID), zap.String("provider", provider))
	return account, true, nil
}

// textColumn renders a JSON column as text for LIKE matching.
func textColumn(db *gorm.DB, column string) string {
	if db.Dialector != nil && db.Dialector.Name() == "mysql" {
		return "CAST(" + column + " AS CHAR)"
	}
	return "CAST(" + column + " AS TEXT)"
}
