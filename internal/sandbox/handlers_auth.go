package sandbox

import (
	"fmt"
	"net/http"
	"strings"
	"unicode"

	"github.com/labstack/echo/v4"

	"github.com/MarkLin1511/MedBridge/internal/platform/api"
)

func accountToUser(a *account) api.User {
	return api.User{
		ID:        a.ID,
		Email:     a.Email,
		FirstName: a.FirstName,
		LastName:  a.LastName,
		Role:      a.Role,
		PatientID: a.PatientID,
		DOB:       a.DOB,
	}
}

func (s *Server) signup(c echo.Context) error {
	var req api.SignupRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request body")
	}
	if req.Email == "" || req.Password == "" || req.FirstName == "" || req.LastName == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "Missing required fields")
	}

	email := strings.ToLower(req.Email)

	s.state.mu.Lock()
	if _, exists := s.state.accounts[email]; exists {
		s.state.mu.Unlock()
		return echo.NewHTTPError(http.StatusBadRequest, "Email already registered")
	}

	hashed, err := hashPassword(req.Password)
	if err != nil {
		s.state.mu.Unlock()
		return err
	}

	role := req.Role
	if role == "" {
		role = "patient"
	}
	var dob *string
	if req.DOB != "" {
		d := req.DOB
		dob = &d
	}
	acct := &account{
		ID:             s.state.nextIDLocked(),
		Email:          email,
		FirstName:      req.FirstName,
		LastName:       req.LastName,
		Role:           role,
		PatientID:      fmt.Sprintf("MBR-%08d", 20240000+s.state.nextID),
		DOB:            dob,
		HashedPassword: hashed,
		SessionTimeout: 30,

		NotifyLabs:             "Email + Push",
		NotifyProviderRequests: "Email + Push",
		NotifyWearableSync:     "Push only",
		NotifyWeeklySummary:    "Email",
	}
	s.state.accounts[email] = acct
	s.state.data(acct.PatientID)
	s.state.mu.Unlock()

	token, err := s.issueToken(email)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, api.AuthResponse{
		AccessToken: token,
		TokenType:   "bearer",
		User:        accountToUser(acct),
	})
}

func (s *Server) login(c echo.Context) error {
	// OAuth2 password-grant form: username carries the email.
	email := c.FormValue("username")
	password := c.FormValue("password")

	acct := s.state.findAccount(email)
	if acct == nil || !checkPassword(acct.HashedPassword, password) {
		return echo.NewHTTPError(http.StatusUnauthorized, "Invalid email or password")
	}

	token, err := s.issueToken(acct.Email)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, api.AuthResponse{
		AccessToken: token,
		TokenType:   "bearer",
		User:        accountToUser(acct),
	})
}

func (s *Server) me(c echo.Context) error {
	return c.JSON(http.StatusOK, accountToUser(currentAccount(c)))
}

type changePasswordRequest struct {
	OldPassword string `json:"old_password"`
	NewPassword string `json:"new_password"`
}

func (s *Server) changePassword(c echo.Context) error {
	acct := currentAccount(c)

	var req changePasswordRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request body")
	}

	if !checkPassword(acct.HashedPassword, req.OldPassword) {
		return echo.NewHTTPError(http.StatusBadRequest, "Current password is incorrect.")
	}
	if errs := passwordErrors(req.NewPassword); len(errs) > 0 {
		return echo.NewHTTPError(http.StatusUnprocessableEntity, strings.Join(errs, " "))
	}

	hashed, err := hashPassword(req.NewPassword)
	if err != nil {
		return err
	}

	s.state.mu.Lock()
	acct.HashedPassword = hashed
	s.state.addAudit(acct.PatientID, "Password changed", "You", "eye")
	s.state.mu.Unlock()

	return c.JSON(http.StatusOK, api.StatusResponse{Status: "ok"})
}

func passwordErrors(pw string) []string {
	var errs []string
	if len(pw) < 8 {
		errs = append(errs, "Password must be at least 8 characters long.")
	}
	var upper, lower, digit bool
	for _, r := range pw {
		switch {
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsLower(r):
			lower = true
		case unicode.IsDigit(r):
			digit = true
		}
	}
	if !upper {
		errs = append(errs, "Password must contain at least one uppercase letter.")
	}
	if !lower {
		errs = append(errs, "Password must contain at least one lowercase letter.")
	}
	if !digit {
		errs = append(errs, "Password must contain at least one digit.")
	}
	return errs
}
