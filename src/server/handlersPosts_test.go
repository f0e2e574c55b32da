package server

import (
	"context"
	"net/http"
	"strings"
	"testing"
	"time"

	app "spotserv/src/app"
	"spotserv/src/events"
	db "spotserv/src/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func jpeg(name, content string) formFile {
	return formFile{field: imagesField, name: name, contentType: "image/jpeg", content: content}
}

func validPostFields() map[string]string {
	return map[string]string{
		"place_name": "Monmouth Coffee",
		"category":   "Cafe",
		"rating":     "4",
		"caption":    "best flat white",
		"hashtags":   "#coffee #Borough coffee",
		"lat":        "51.5055",
		"lng":        "-0.0910",
	}
}

func TestCreatePost(t *testing.T) {
	env := newTestEnv(t, nil)
	body, header := multipartBody(t, validPostFields(), []formFile{jpeg("one.jpg", "first"), jpeg("two.png", "second")})

	w := env.do(t, http.MethodPost, "/api/posts", body, "alice", header)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var post app.Post
	decode(t, w, &post)
	assert.NotEmpty(t, post.ID)
	assert.Equal(t, "alice", post.AuthorID)
	assert.Equal(t, "Monmouth Coffee — best flat white", post.Caption)
	assert.Equal(t, 4, post.Rating)
	assert.Equal(t, []string{"coffee", "borough"}, post.Hashtags)
	require.Len(t, post.ImageURLs, 2)
	assert.Equal(t, post.ImageURLs[0], post.ImageURL)
	assert.True(t, strings.HasPrefix(post.ImageURLs[0], mediaBase+"/post-images/posts/"))
	assert.True(t, strings.HasSuffix(post.ImageURLs[0], ".jpg"))
	assert.True(t, strings.HasSuffix(post.ImageURLs[1], ".png"))
	require.NotNil(t, post.Lat)
	assert.InDelta(t, 51.5055, *post.Lat, 1e-9)

	stored, err := env.posts.Get(context.Background(), post.ID)
	require.NoError(t, err)
	assert.Equal(t, post.ImageURLs, stored.ImageURLs)
	assert.Equal(t, 2, env.media.count())
	assert.Equal(t, []string{events.SubjectPostCreated}, env.publisher.subjects)
}

func TestCreatePostValidation(t *testing.T) {
	five := []formFile{jpeg("1.jpg", "a"), jpeg("2.jpg", "b"), jpeg("3.jpg", "c"), jpeg("4.jpg", "d"), jpeg("5.jpg", "e")}
	withField := func(key, value string) map[string]string {
		fields := validPostFields()
		if value == "" {
			delete(fields, key)
		} else {
			fields[key] = value
		}
		return fields
	}

	tests := []struct {
		name    string
		fields  map[string]string
		files   []formFile
		wantErr string
	}{
		{"no photos", validPostFields(), nil, "Please upload at least 1 photo."},
		{"too many photos", validPostFields(), five, "At most 4 photos per post."},
		{"no place name", withField("place_name", ""), []formFile{jpeg("1.jpg", "a")}, "Please enter a place name."},
		{"unknown category", withField("category", "Casino"), []formFile{jpeg("1.jpg", "a")}, "Please choose a valid category."},
		{"rating out of range", withField("rating", "9"), []formFile{jpeg("1.jpg", "a")}, "Rating must be between 1 and 5."},
		{"lat without lng", withField("lng", ""), []formFile{jpeg("1.jpg", "a")}, "lat and lng must be provided together."},
		{
			"not an image", validPostFields(),
			[]formFile{{field: imagesField, name: "notes.txt", contentType: "text/plain", content: "hi"}},
			"notes.txt is not an image.",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t, nil)
			body, header := multipartBody(t, tt.fields, tt.files)
			w := env.do(t, http.MethodPost, "/api/posts", body, "alice", header)
			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Equal(t, tt.wantErr, decode(t, w, nil).Error)
			assert.Zero(t, env.media.count())
		})
	}
}

func TestCreatePostRejectsLargeImage(t *testing.T) {
	env := newTestEnv(t, nil)
	env.config.Server.MaxUploadBytes = 8
	body, header := multipartBody(t, validPostFields(), []formFile{jpeg("big.jpg", "0123456789")})

	w := env.do(t, http.MethodPost, "/api/posts", body, "alice", header)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Zero(t, env.media.count())
}

func TestCreatePostUploadFailureCleansUp(t *testing.T) {
	env := newTestEnv(t, nil)
	body, header := multipartBody(t, validPostFields(), []formFile{jpeg("ok.jpg", "fine"), jpeg("bad.jpg", "boom")})

	w := env.do(t, http.MethodPost, "/api/posts", body, "alice", header)
	assert.Equal(t, http.StatusBadGateway, w.Code)
	assert.Zero(t, env.media.count())

	posts, err := env.posts.List(context.Background(), db.PostFilter{})
	require.NoError(t, err)
	assert.Empty(t, posts)
}

func seedPost(t *testing.T, env *testEnv, post app.Post) app.Post {
	t.Helper()
	if post.CreatedAt.IsZero() {
		post.CreatedAt = time.Now().UTC()
	}
	if post.Hashtags == nil {
		post.Hashtags = []string{}
	}
	require.NoError(t, env.posts.Create(context.Background(), post))
	return post
}

func coords(lat, lng float64) (*float64, *float64) { return &lat, &lng }

func TestListAndGetPosts(t *testing.T) {
	env := newTestEnv(t, nil)
	base := time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC)
	seedPost(t, env, app.Post{ID: "p1", AuthorID: "alice", Category: "Cafe", Hashtags: []string{"matcha"}, CreatedAt: base})
	seedPost(t, env, app.Post{ID: "p2", AuthorID: "bob", Category: "Bar", CreatedAt: base.Add(time.Hour)})
	seedPost(t, env, app.Post{ID: "p3", AuthorID: "alice", Category: "Cafe", CreatedAt: base.Add(2 * time.Hour)})

	var posts []app.Post
	decode(t, env.do(t, http.MethodGet, "/api/posts", nil, "", nil), &posts)
	assert.Equal(t, []string{"p3", "p2", "p1"}, postIDs(posts))

	decode(t, env.do(t, http.MethodGet, "/api/posts?category=Cafe&limit=1", nil, "", nil), &posts)
	assert.Equal(t, []string{"p3"}, postIDs(posts))

	decode(t, env.do(t, http.MethodGet, "/api/posts?hashtag=%23Matcha", nil, "", nil), &posts)
	assert.Equal(t, []string{"p1"}, postIDs(posts))

	decode(t, env.do(t, http.MethodGet, "/api/posts?before=2024-06-01T10:30:00Z", nil, "", nil), &posts)
	assert.Equal(t, []string{"p2", "p1"}, postIDs(posts))

	decode(t, env.do(t, http.MethodGet, "/api/profiles/alice/posts", nil, "", nil), &posts)
	assert.Equal(t, []string{"p3", "p1"}, postIDs(posts))

	assert.Equal(t, http.StatusBadRequest, env.do(t, http.MethodGet, "/api/posts?category=Casino", nil, "", nil).Code)
	assert.Equal(t, http.StatusBadRequest, env.do(t, http.MethodGet, "/api/posts?limit=zero", nil, "", nil).Code)
	assert.Equal(t, http.StatusBadRequest, env.do(t, http.MethodGet, "/api/posts?before=yesterday", nil, "", nil).Code)

	var post app.Post
	decode(t, env.do(t, http.MethodGet, "/api/posts/p2", nil, "", nil), &post)
	assert.Equal(t, "bob", post.AuthorID)
	assert.Equal(t, http.StatusNotFound, env.do(t, http.MethodGet, "/api/posts/missing", nil, "", nil).Code)
}

func TestNearbyPosts(t *testing.T) {
	env := newTestEnv(t, nil)
	lat, lng := coords(51.5074, -0.1278)
	seedPost(t, env, app.Post{ID: "center", Lat: lat, Lng: lng})
	lat, lng = coords(51.5160, -0.1278)
	seedPost(t, env, app.Post{ID: "one-km", Lat: lat, Lng: lng})
	lat, lng = coords(51.5200, -0.1278)
	seedPost(t, env, app.Post{ID: "far", Lat: lat, Lng: lng})
	seedPost(t, env, app.Post{ID: "no-geo"})

	var nearby []NearbyPost
	decode(t, env.do(t, http.MethodGet, "/api/posts/nearby?lat=51.5074&lng=-0.1278&radius=1200", nil, "", nil), &nearby)
	require.Len(t, nearby, 2)
	assert.Equal(t, "center", nearby[0].ID)
	assert.Equal(t, "one-km", nearby[1].ID)
	assert.InDelta(t, 956, nearby[1].DistanceMeters, 5)

	decode(t, env.do(t, http.MethodGet, "/api/posts/nearby?lat=51.5074&lng=-0.1278", nil, "", nil), &nearby)
	assert.Len(t, nearby, 3)

	assert.Equal(t, http.StatusBadRequest, env.do(t, http.MethodGet, "/api/posts/nearby?lat=x&lng=1", nil, "", nil).Code)
	assert.Equal(t, http.StatusBadRequest, env.do(t, http.MethodGet, "/api/posts/nearby?lat=1&lng=1&radius=99", nil, "", nil).Code)
}

func TestNearbyPostsAppliesFilters(t *testing.T) {
	env := newTestEnv(t, nil)
	base := time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC)
	lat, lng := coords(51.5074, -0.1278)
	seedPost(t, env, app.Post{ID: "match", AuthorID: "alice", Category: "Cafe", Hashtags: []string{"matcha"}, Lat: lat, Lng: lng, CreatedAt: base})
	lat, lng = coords(51.5080, -0.1278)
	seedPost(t, env, app.Post{ID: "other-author", AuthorID: "bob", Category: "Cafe", Hashtags: []string{"matcha"}, Lat: lat, Lng: lng, CreatedAt: base})
	lat, lng = coords(51.5085, -0.1278)
	seedPost(t, env, app.Post{ID: "other-tag", AuthorID: "alice", Category: "Cafe", Lat: lat, Lng: lng, CreatedAt: base})
	lat, lng = coords(51.5090, -0.1278)
	seedPost(t, env, app.Post{ID: "too-new", AuthorID: "alice", Category: "Cafe", Hashtags: []string{"matcha"}, Lat: lat, Lng: lng, CreatedAt: base.Add(2 * time.Hour)})

	var nearby []NearbyPost
	decode(t, env.do(t, http.MethodGet, "/api/posts/nearby?lat=51.5074&lng=-0.1278&hashtag=matcha&author=alice", nil, "", nil), &nearby)
	require.Len(t, nearby, 2)
	assert.Equal(t, "match", nearby[0].ID)
	assert.Equal(t, "too-new", nearby[1].ID)

	before := base.Add(time.Hour).Format(time.RFC3339)
	decode(t, env.do(t, http.MethodGet, "/api/posts/nearby?lat=51.5074&lng=-0.1278&hashtag=%23matcha&author=alice&before="+before, nil, "", nil), &nearby)
	require.Len(t, nearby, 1)
	assert.Equal(t, "match", nearby[0].ID)
}

func TestNearbyPostsAcrossAntimeridian(t *testing.T) {
	env := newTestEnv(t, nil)
	lat, lng := coords(0, 179.995)
	seedPost(t, env, app.Post{ID: "east", Lat: lat, Lng: lng})
	lat, lng = coords(0, -179.995)
	seedPost(t, env, app.Post{ID: "west", Lat: lat, Lng: lng})

	var nearby []NearbyPost
	decode(t, env.do(t, http.MethodGet, "/api/posts/nearby?lat=0&lng=179.999&radius=2000", nil, "", nil), &nearby)
	require.Len(t, nearby, 2)
	assert.Equal(t, "east", nearby[0].ID)
	assert.Equal(t, "west", nearby[1].ID)
}

func TestDeletePost(t *testing.T) {
	env := newTestEnv(t, nil)
	body, header := multipartBody(t, validPostFields(), []formFile{jpeg("one.jpg", "first")})
	w := env.do(t, http.MethodPost, "/api/posts", body, "alice", header)
	require.Equal(t, http.StatusCreated, w.Code)
	var post app.Post
	decode(t, w, &post)
	require.Equal(t, 1, env.media.count())

	assert.Equal(t, http.StatusForbidden, env.do(t, http.MethodDelete, "/api/posts/"+post.ID, nil, "bob", nil).Code)
	assert.Equal(t, http.StatusNotFound, env.do(t, http.MethodDelete, "/api/posts/missing", nil, "alice", nil).Code)

	w = env.do(t, http.MethodDelete, "/api/posts/"+post.ID, nil, "alice", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Zero(t, env.media.count())
	_, err := env.posts.Get(context.Background(), post.ID)
	assert.Error(t, err)
	assert.Contains(t, env.publisher.subjects, events.SubjectPostDeleted)
}

func postIDs(posts []app.Post) []string {
	ids := make([]string, 0, len(posts))
	for _, p := range posts {
		ids = append(ids, p.ID)
	}
	return ids
}
