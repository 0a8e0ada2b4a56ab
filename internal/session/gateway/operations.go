package gateway

import (
	"time"

	"github.com/afyapapo/sessioncore/internal/session/domain"
)

const userFields = `
      id
      username
      email
      fullName
      userType
      isActive
      hospitalAdminProfile {
        id
        primaryFacility {
          id
          name
          facilityType
          region
          district
        }
        permissions {
          canManageBeds
          canManageStaff
          canManageResources
          canViewPatientData
          canGenerateReports
          canManageAmbulances
        }
        departmentAccess
        canManageFleet
        canViewAnalytics
      }
      emergencyResponderProfile {
        id
        responderType
        certificationLevel
        isOnDuty
        currentLocation {
          latitude
          longitude
        }
        assignedFacility {
          id
          name
        }
      }`

const adminLoginMutation = `mutation AdminLogin($input: AdminLoginInput!) {
  adminLogin(input: $input) {
    success
    user {` + userFields + `
    }
    accessToken
    refreshToken
    expiresAt
    errors
  }
}`

const refreshTokenMutation = `mutation RefreshToken($refreshToken: String!) {
  refreshToken(refreshToken: $refreshToken) {
    success
    accessToken
    refreshToken
    expiresAt
    errors
  }
}`

const logoutMutation = `mutation Logout {
  logout {
    success
    message
  }
}`

const currentUserQuery = `query GetCurrentUser {
  me {` + userFields + `
  }
}`

type adminLoginInput struct {
	Username   string      `json:"username"`
	Password   string      `json:"password"`
	UserType   domain.Role `json:"userType"`
	DeviceInfo string      `json:"deviceInfo,omitempty"`
}

type tokenPayload struct {
	Success      bool     `json:"success"`
	AccessToken  string   `json:"accessToken"`
	RefreshToken string   `json:"refreshToken"`
	ExpiresAt    string   `json:"expiresAt"`
	Errors       []string `json:"errors"`
}

type adminLoginData struct {
	AdminLogin *struct {
		tokenPayload
		User *domain.User `json:"user"`
	} `json:"adminLogin"`
}

type refreshTokenData struct {
	RefreshToken *tokenPayload `json:"refreshToken"`
}

type logoutData struct {
	Logout *struct {
		Success bool   `json:"success"`
		Message string `json:"message"`
	} `json:"logout"`
}

type currentUserData struct {
	Me *domain.User `json:"me"`
}

// expiryLayouts are tried in order when the provider returns expiresAt.
var expiryLayouts = []string{time.RFC3339Nano, "2006-01-02T15:04:05.999999999", "2006-01-02 15:04:05"}

func parseExpiry(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range expiryLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
