package server

import (
	"net/http"

	"spotserv/src/events"
	db "spotserv/src/repository"

	"github.com/gin-gonic/gin"
)

type (
	Friends struct {
		Following []string `json:"following"`
		Followers []string `json:"followers"`
	}

	FollowEvent struct {
		Follower string `json:"follower"`
		Followee string `json:"followee"`
	}
)

func (a *AppHandler) GetFriends(c *gin.Context) {
	ctx := c.Request.Context()
	user := currentUser(c)
	following, err := a.graph.Following(ctx, user)
	if err != nil {
		a.respondError(c, err)
		return
	}
	followers, err := a.graph.Followers(ctx, user)
	if err != nil {
		a.respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, Friends{Following: following, Followers: followers})
}

func (a *AppHandler) Follow(c *gin.Context) {
	ctx := c.Request.Context()
	target := c.Param("id")
	if _, err := a.profiles.Get(ctx, target); err != nil {
		a.respondError(c, err)
		return
	}
	if err := a.graph.Follow(ctx, currentUser(c), target); err != nil {
		a.respondError(c, err)
		return
	}
	a.publish(events.SubjectFriendFollowed, FollowEvent{Follower: currentUser(c), Followee: target})
	respondOK(c, http.StatusOK, FollowEvent{Follower: currentUser(c), Followee: target})
}

func (a *AppHandler) Unfollow(c *gin.Context) {
	if err := a.graph.Unfollow(c.Request.Context(), currentUser(c), c.Param("id")); err != nil {
		a.respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, FollowEvent{Follower: currentUser(c), Followee: c.Param("id")})
}

// GetFeed lists posts of everyone the user follows, newest first.
func (a *AppHandler) GetFeed(c *gin.Context) {
	filter, err := postFilterFromQuery(c)
	if err != nil {
		a.respondError(c, err)
		return
	}
	following, err := a.graph.Following(c.Request.Context(), currentUser(c))
	if err != nil {
		a.respondError(c, err)
		return
	}
	filter.AuthorIDs = following
	a.listPosts(c, filter)
}

func (a *AppHandler) GetSaved(c *gin.Context) {
	saved, err := a.graph.Saved(c.Request.Context(), currentUser(c))
	if err != nil {
		a.respondError(c, err)
		return
	}
	a.listPosts(c, db.PostFilter{IDs: saved, Limit: db.MaxListLimit})
}

func (a *AppHandler) SavePost(c *gin.Context) {
	ctx := c.Request.Context()
	post, err := a.posts.Get(ctx, c.Param("id"))
	if err != nil {
		a.respondError(c, err)
		return
	}
	if err := a.graph.Save(ctx, currentUser(c), post.ID); err != nil {
		a.respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, PostRef{ID: post.ID})
}

func (a *AppHandler) UnsavePost(c *gin.Context) {
	if err := a.graph.Unsave(c.Request.Context(), currentUser(c), c.Param("id")); err != nil {
		a.respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, PostRef{ID: c.Param("id")})
}
