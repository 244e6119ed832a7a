package middleware

import (
	"net/http"
	"os"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"loan-review-api/config"
	"loan-review-api/models"
)

const (
	KindApplicant = "applicant"
	KindOfficer   = "officer"
)

type Claims struct {
	UserID int64  `json:"user_id"`
	Email  string `json:"email"`
	Kind   string `json:"kind"` // applicant or officer
	Role   string `json:"role"` // officer role, empty for applicants
	jwt.RegisteredClaims
}

// AuthMiddleware validates the JWT and confirms the account still exists and
// is active.
func AuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Authorization header is required"})
			c.Abort()
			return
		}

		tokenString := strings.TrimPrefix(authHeader, "Bearer ")
		if tokenString == authHeader {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid authorization header format"})
			c.Abort()
			return
		}

		token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
			return []byte(os.Getenv("JWT_SECRET")), nil
		})
		if err != nil || !token.Valid {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired token"})
			c.Abort()
			return
		}

		claims, ok := token.Claims.(*Claims)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid token claims"})
			c.Abort()
			return
		}

		switch claims.Kind {
		case KindApplicant:
			var applicant models.Applicant
			if err := config.DB.First(&applicant, "applicant_id = ?", claims.UserID).Error; err != nil {
				c.JSON(http.StatusUnauthorized, gin.H{"error": "Account not found"})
				c.Abort()
				return
			}
		case KindOfficer:
			var officer models.Officer
			if err := config.DB.First(&officer, "officer_id = ? AND is_active = ?", claims.UserID, true).Error; err != nil {
				c.JSON(http.StatusUnauthorized, gin.H{"error": "Account not found or deactivated"})
				c.Abort()
				return
			}
			// Role changes take effect on the next request, not the next login.
			claims.Role = string(officer.Role)
		default:
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid token claims"})
			c.Abort()
			return
		}

		c.Set("userID", claims.UserID)
		c.Set("email", claims.Email)
		c.Set("kind", claims.Kind)
		c.Set("role", claims.Role)

		c.Next()
	}
}

// RequireRole restricts a route to officers holding one of the given roles.
func RequireRole(roles ...models.OfficerRole) gin.HandlerFunc {
	return func(c *gin.Context) {
		kind, _ := c.Get("kind")
		if kind != KindOfficer {
			c.JSON(http.StatusForbidden, gin.H{"error": "Officer account required"})
			c.Abort()
			return
		}

		roleValue, exists := c.Get("role")
		if !exists {
			c.JSON(http.StatusForbidden, gin.H{"error": "Role not found"})
			c.Abort()
			return
		}

		current := models.OfficerRole(roleValue.(string))
		allowed := false
		for _, role := range roles {
			if current == role {
				allowed = true
				break
			}
		}
		if !allowed {
			c.JSON(http.StatusForbidden, gin.H{"error": "Insufficient permissions"})
			c.Abort()
			return
		}

		c.Next()
	}
}

// RequireApplicant restricts a route to applicant accounts.
func RequireApplicant() gin.HandlerFunc {
	return func(c *gin.Context) {
		kind, _ := c.Get("kind")
		if kind != KindApplicant {
			c.JSON(http.StatusForbidden, gin.H{"error": "Applicant account required"})
			c.Abort()
			return
		}
		c.Next()
	}
}

// RequireComplianceRole is shorthand for the two compliance roles.
func RequireComplianceRole() gin.HandlerFunc {
	return RequireRole(models.RoleComplianceOfficer, models.RoleSeniorComplianceOfficer)
}

// RequireLoanRole is shorthand for the two loan officer roles.
func RequireLoanRole() gin.HandlerFunc {
	return RequireRole(models.RoleLoanOfficer, models.RoleSeniorLoanOfficer)
}
