package server

import (
	"errors"
	"fmt"
	"net/http"

	app "spotserv/src/app"
	"spotserv/src/events"
	db "spotserv/src/repository"

	"github.com/gin-gonic/gin"
)

// GetProfile answers with a null payload until the profile exists.
func (a *AppHandler) GetProfile(c *gin.Context) {
	profile, err := a.profiles.Get(c.Request.Context(), currentUser(c))
	if errors.Is(err, db.ErrNotFound) {
		respondOK(c, http.StatusOK, nil)
		return
	}
	if err != nil {
		a.respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, profile)
}

func (a *AppHandler) UpdateProfile(c *gin.Context) {
	var update app.ProfileUpdate
	if err := c.ShouldBindJSON(&update); err != nil {
		abortWithError(c, http.StatusBadRequest, fmt.Errorf("invalid profile body: %w", err))
		return
	}
	if err := update.Validate(); err != nil {
		a.respondError(c, err)
		return
	}

	ctx := c.Request.Context()
	user := currentUser(c)
	profile, err := a.profiles.Update(ctx, user, update)
	if errors.Is(err, db.ErrNotFound) {
		created := app.Profile{ID: user}
		update.Apply(&created)
		profile, err = a.profiles.Upsert(ctx, created)
		if err == nil && update.Bio != nil {
			profile, err = a.profiles.Update(ctx, user, app.ProfileUpdate{Bio: update.Bio})
		}
	}
	if err != nil {
		a.respondError(c, err)
		return
	}
	a.publish(events.SubjectProfileUpdated, profile)
	respondOK(c, http.StatusOK, profile)
}

// GetPublicProfile hides the email of other users.
func (a *AppHandler) GetPublicProfile(c *gin.Context) {
	profile, err := a.profiles.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		a.respondError(c, err)
		return
	}
	profile.Email = ""
	respondOK(c, http.StatusOK, profile)
}

func (a *AppHandler) GetSettings(c *gin.Context) {
	settings, err := a.profiles.GetSettings(c.Request.Context(), currentUser(c))
	if err != nil {
		a.respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, settings)
}

// PutSettings replaces the stored settings. Missing fields take defaults.
func (a *AppHandler) PutSettings(c *gin.Context) {
	settings := app.DefaultSettings()
	if err := c.ShouldBindJSON(&settings); err != nil {
		abortWithError(c, http.StatusBadRequest, fmt.Errorf("invalid settings body: %w", err))
		return
	}
	if err := settings.Validate(); err != nil {
		a.respondError(c, err)
		return
	}
	if err := a.profiles.PutSettings(c.Request.Context(), currentUser(c), settings); err != nil {
		a.respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, settings)
}
