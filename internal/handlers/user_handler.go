package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/joshua-takyi/servicehub/internal/helpers"
	"github.com/joshua-takyi/servicehub/internal/middleware"
	"github.com/joshua-takyi/servicehub/internal/models"
	"github.com/supabase-community/gotrue-go/types"
)

// UserAPI is the profile and session surface the HTTP layer depends on.
type UserAPI interface {
	GetUser(ctx context.Context, id uuid.UUID, accessToken string) (*models.User, error)
	RefreshToken(ctx context.Context, refreshToken string) (*types.TokenResponse, error)
}

// GetProfile returns the caller's profile, falling back to the token claims when no profile row exists.
func GetProfile(u UserAPI) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, ok := middleware.CurrentUser(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, helpers.ErrorResponse("unauthorized"))
			return
		}
		userID, err := claims.UserUUID()
		if err != nil {
			c.JSON(http.StatusUnauthorized, helpers.ErrorResponse("invalid user ID in token"))
			return
		}

		user, err := u.GetUser(c.Request.Context(), userID, c.GetString("access_token"))
		if err != nil {
			c.JSON(http.StatusOK, helpers.SuccessResponse(gin.H{
				"id":    claims.UserID,
				"email": claims.Email,
				"role":  claims.GetSafeRole(),
			}, "profile retrieved from token"))
			return
		}
		c.JSON(http.StatusOK, helpers.SuccessResponse(user, "profile retrieved successfully"))
	}
}

// RefreshSession exchanges the refresh_token cookie for a new session.
func RefreshSession(u UserAPI, secureCookies bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		refreshToken, err := c.Cookie("refresh_token")
		if err != nil || refreshToken == "" {
			c.JSON(http.StatusUnauthorized, helpers.ErrorResponse("refresh token not found"))
			return
		}

		tokenRes, err := u.RefreshToken(c.Request.Context(), refreshToken)
		if err != nil || tokenRes == nil || tokenRes.AccessToken == "" {
			c.JSON(http.StatusUnauthorized, helpers.ErrorResponse("session could not be refreshed"))
			return
		}

		// Access token lives as long as the session, refresh token for 30 days.
		c.SetCookie("access_token", tokenRes.AccessToken, tokenRes.ExpiresIn, "/", "", secureCookies, true)
		c.SetCookie("refresh_token", tokenRes.RefreshToken, 3600*24*30, "/", "", secureCookies, true)

		c.JSON(http.StatusOK, helpers.SuccessResponse(gin.H{
			"user":       tokenRes.User,
			"expires_in": tokenRes.ExpiresIn,
		}, "session refreshed"))
	}
}

func Logout(secureCookies bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.SetCookie("access_token", "", -1, "/", "", secureCookies, true)
		c.SetCookie("refresh_token", "", -1, "/", "", secureCookies, true)

		c.JSON(http.StatusOK, helpers.SuccessResponse(nil, "logged out successfully"))
	}
}
