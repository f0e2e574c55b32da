package server

import (
	"context"
	"errors"
	"fmt"
	"mime"
	"mime/multipart"
	"net/http"
	"path"
	"strconv"
	"strings"

	app "spotserv/src/app"
	"spotserv/src/events"
	db "spotserv/src/repository"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	imagesField = "images"
	avatarField = "avatar"

	// extra room for the non-file form fields
	formOverheadBytes = 1 << 20
)

var (
	imageAvailableFormats = []string{"png", "jpg", "jpeg", "gif", "webp", "heic"}

	errStorageUnavailable = errors.New("media storage is not configured")
	errNotAuthor          = errors.New("only the author can delete this post")
)

type PostRef struct {
	ID string `json:"id"`
}

// CreatePost accepts the multipart form of the post page and stores every
// photo before the row is written.
func (a *AppHandler) CreatePost(c *gin.Context) {
	if a.media == nil {
		abortWithError(c, http.StatusServiceUnavailable, errStorageUnavailable)
		return
	}
	limit := a.config.Server.MaxUploadBytes*app.MaxImagesPerPost + formOverheadBytes
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, limit)

	form, err := c.MultipartForm()
	if err != nil {
		abortWithError(c, http.StatusBadRequest, fmt.Errorf("can not read form: %w", err))
		return
	}
	files := append(form.File[imagesField], form.File[imagesField+"[]"]...)

	input, err := postInputFromForm(c, len(files))
	if err != nil {
		a.respondError(c, err)
		return
	}
	if err := input.Validate(); err != nil {
		a.respondError(c, err)
		return
	}
	for _, header := range files {
		if err := a.checkImage(header); err != nil {
			a.respondError(c, err)
			return
		}
	}

	ctx := c.Request.Context()
	urls, err := a.uploadImages(ctx, files)
	if err != nil {
		abortWithError(c, http.StatusBadGateway, fmt.Errorf("can not upload image to s3: %w", err))
		return
	}

	post := input.Build(uuid.NewString(), currentUser(c), urls, a.now())
	if err := a.posts.Create(ctx, post); err != nil {
		a.removeImages(context.WithoutCancel(ctx), urls)
		a.respondError(c, err)
		return
	}
	a.publish(events.SubjectPostCreated, post)
	respondOK(c, http.StatusCreated, post)
}

func postInputFromForm(c *gin.Context, imageCount int) (app.NewPostInput, error) {
	input := app.NewPostInput{
		PlaceName:  c.PostForm("place_name"),
		PlaceID:    c.PostForm("place_id"),
		Category:   c.PostForm("category"),
		Caption:    c.PostForm("caption"),
		Rating:     app.DefaultRating,
		Hashtags:   app.ParseHashtags(c.PostForm("hashtags")),
		ImageCount: imageCount,
	}
	if raw := strings.TrimSpace(c.PostForm("rating")); raw != "" {
		rating, err := strconv.Atoi(raw)
		if err != nil {
			return input, &app.ValidationError{Field: "rating", Message: "Rating must be between 1 and 5."}
		}
		input.Rating = rating
	}
	for field, target := range map[string]**float64{"lat": &input.Lat, "lng": &input.Lng} {
		raw := strings.TrimSpace(c.PostForm(field))
		if raw == "" {
			continue
		}
		value, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return input, &app.ValidationError{Field: field, Message: "lat and lng must be numbers."}
		}
		*target = &value
	}
	return input, nil
}

func (a *AppHandler) checkImage(header *multipart.FileHeader) error {
	if header.Size > a.config.Server.MaxUploadBytes {
		return &app.ValidationError{
			Field:   imagesField,
			Message: fmt.Sprintf("%s is larger than %d bytes.", header.Filename, a.config.Server.MaxUploadBytes),
		}
	}
	if !strings.HasPrefix(imageContentType(header), "image/") {
		return &app.ValidationError{Field: imagesField, Message: fmt.Sprintf("%s is not an image.", header.Filename)}
	}
	return nil
}

func imageContentType(header *multipart.FileHeader) string {
	if contentType := header.Header.Get("Content-Type"); contentType != "" && contentType != "application/octet-stream" {
		return contentType
	}
	return mime.TypeByExtension(path.Ext(header.Filename))
}

// uploadImages stores the photos concurrently and keeps their order. On
// failure the photos already stored are removed.
func (a *AppHandler) uploadImages(ctx context.Context, files []*multipart.FileHeader) ([]string, error) {
	urls := make([]string, len(files))
	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(app.MaxImagesPerPost)
	for i, header := range files {
		i, header := i, header
		group.Go(func() error {
			url, err := a.uploadFile(groupCtx, a.config.S3.PostBucket, app.ImageObjectPath(header.Filename), header)
			if err != nil {
				return err
			}
			urls[i] = url
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		a.removeImages(context.WithoutCancel(ctx), urls)
		return nil, err
	}
	return urls, nil
}

func (a *AppHandler) uploadFile(ctx context.Context, bucket, objectPath string, header *multipart.FileHeader) (string, error) {
	file, err := header.Open()
	if err != nil {
		return "", fmt.Errorf("open %s: %w", header.Filename, err)
	}
	defer file.Close()
	return a.media.UploadFile(ctx, bucket, objectPath, file, header.Size, imageContentType(header))
}

func (a *AppHandler) removeImages(ctx context.Context, urls []string) {
	for _, url := range urls {
		if url == "" {
			continue
		}
		name, ok := a.media.ObjectName(a.config.S3.PostBucket, url)
		if !ok {
			continue
		}
		if err := a.media.DeleteFile(ctx, a.config.S3.PostBucket, name); err != nil {
			a.logger.Warn("can not delete image from s3", zap.String("object", name), zap.Error(err))
		}
	}
}

func (a *AppHandler) DeletePost(c *gin.Context) {
	ctx := c.Request.Context()
	post, err := a.posts.Get(ctx, c.Param("id"))
	if err != nil {
		a.respondError(c, err)
		return
	}
	if post.AuthorID != currentUser(c) {
		abortWithError(c, http.StatusForbidden, errNotAuthor)
		return
	}
	if err := a.posts.Delete(ctx, post.ID); err != nil {
		a.respondError(c, err)
		return
	}
	if a.media != nil {
		a.removeImages(ctx, post.ImageURLs)
	}
	a.publish(events.SubjectPostDeleted, PostRef{ID: post.ID})
	respondOK(c, http.StatusOK, PostRef{ID: post.ID})
}

// UploadAvatar stores a new avatar and points the profile at it.
func (a *AppHandler) UploadAvatar(c *gin.Context) {
	if a.media == nil {
		abortWithError(c, http.StatusServiceUnavailable, errStorageUnavailable)
		return
	}
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, a.config.Server.MaxUploadBytes+formOverheadBytes)

	header, err := c.FormFile(avatarField)
	if err != nil {
		abortWithError(c, http.StatusBadRequest, fmt.Errorf("can not find avatar in request: %w", err))
		return
	}
	if err := a.checkImage(header); err != nil {
		a.respondError(c, err)
		return
	}

	ctx := c.Request.Context()
	user := currentUser(c)
	url, err := a.uploadFile(ctx, a.config.S3.AvatarBucket, app.AvatarObjectPath(user, header.Filename, a.now()), header)
	if err != nil {
		abortWithError(c, http.StatusBadGateway, fmt.Errorf("can not upload avatar to s3: %w", err))
		return
	}

	profile, err := a.profiles.Update(ctx, user, app.ProfileUpdate{AvatarURL: &url})
	if errors.Is(err, db.ErrNotFound) {
		profile, err = a.profiles.Upsert(ctx, app.Profile{ID: user, AvatarURL: url})
	}
	if err != nil {
		a.respondError(c, err)
		return
	}
	a.publish(events.SubjectProfileUpdated, profile)
	respondOK(c, http.StatusOK, profile)
}

// ListAvatars returns download links for every avatar the user uploaded.
func (a *AppHandler) ListAvatars(c *gin.Context) {
	if a.media == nil {
		abortWithError(c, http.StatusServiceUnavailable, errStorageUnavailable)
		return
	}
	images, err := a.media.ListObjects(c.Request.Context(), a.config.S3.AvatarBucket, currentUser(c)+"/", imageAvailableFormats)
	if err != nil {
		abortWithError(c, http.StatusBadGateway, fmt.Errorf("can not fetch images from s3: %w", err))
		return
	}
	result := make([]string, 0, len(images))
	for _, image := range images {
		result = append(result, image.String())
	}
	respondOK(c, http.StatusOK, result)
}
