package controllers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gosimple/slug"
	"gorm.io/gorm"

	"github.com/aimastery/academy/backend/apperr"
	"github.com/aimastery/academy/backend/config"
	"github.com/aimastery/academy/backend/logging"
	"github.com/aimastery/academy/backend/models"
	"github.com/aimastery/academy/backend/utils"
)

type CommunityController struct {
	DB     *gorm.DB
	Cfg    *config.Config
	Logger logging.Logger
}

func NewCommunityController(db *gorm.DB, cfg *config.Config, logger logging.Logger) *CommunityController {
	return &CommunityController{DB: db, Cfg: cfg, Logger: logger}
}

type CreatePostRequest struct {
	Title string `json:"title" validate:"required,min=3,max=200" example:"How do embeddings work?"`
	Body  string `json:"body" validate:"required,max=20000" example:"I finished the vectors lesson and..."`
}

type CreateReplyRequest struct {
	Body string `json:"body" validate:"required,max=10000" example:"Think of them as coordinates."`
}

type PostResponse struct {
	Post      PostView       `json:"post"`
	NewBadges []models.Badge `json:"new_badges"`
}

type ReplyResponse struct {
	Reply     ReplyView      `json:"reply"`
	NewBadges []models.Badge `json:"new_badges"`
}

// ListPosts godoc
// @Summary List community posts
// @Description Newest first
// @Tags community
// @Produce json
// @Param page query int false "Page" default(1)
// @Param page_size query int false "Page size" default(20)
// @Success 200 {object} utils.SuccessResponse{data=[]PostView,meta=utils.PaginationMeta}
// @Security ApiKeyAuth
// @Router /community/posts [get]
func (cc *CommunityController) ListPosts(c *fiber.Ctx) error {
	page, pageSize := pagination(c)
	db := cc.DB.WithContext(c.UserContext())

	var total int64
	if err := db.Model(&models.Post{}).Count(&total).Error; err != nil {
		return utils.Fail(c, err)
	}
	var posts []models.Post
	if err := db.Preload("Author").
		Order("created_at DESC").Order("id DESC").
		Offset((page - 1) * pageSize).Limit(pageSize).
		Find(&posts).Error; err != nil {
		return utils.Fail(c, err)
	}

	out := make([]PostView, 0, len(posts))
	for i := range posts {
		out = append(out, newPostView(&posts[i]))
	}
	return utils.Paginate(c, out, total, page, pageSize)
}

// CreatePost godoc
// @Summary Create a post
// @Tags community
// @Accept json
// @Produce json
// @Param input body CreatePostRequest true "Post"
// @Success 201 {object} utils.SuccessResponse{data=PostResponse}
// @Failure 422 {object} utils.ErrorResponse
// @Failure 429 {object} utils.ErrorResponse
// @Security ApiKeyAuth
// @Router /community/posts [post]
func (cc *CommunityController) CreatePost(c *fiber.Ctx) error {
	var input CreatePostRequest
	if ok, err := utils.ParseBody(c, &input); !ok {
		return err
	}
	ctx := c.UserContext()
	user := currentUser(c)

	post := models.Post{
		UserID: user.ID,
		Title:  input.Title,
		Slug:   slug.Make(input.Title),
		Body:   input.Body,
	}
	if err := cc.DB.WithContext(ctx).Create(&post).Error; err != nil {
		return utils.Fail(c, err)
	}
	post.Author = *user

	return utils.Created(c, PostResponse{
		Post:      newPostView(&post),
		NewBadges: awardBadges(ctx, cc.DB, cc.Logger, user.ID),
	})
}

func (cc *CommunityController) findPost(c *fiber.Ctx, withReplies bool) (*models.Post, error) {
	id, err := paramID(c, "id")
	if err != nil {
		return nil, err
	}
	query := cc.DB.WithContext(c.UserContext()).Preload("Author")
	if withReplies {
		query = query.Preload("Replies", func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at ASC").Order("id ASC")
		}).Preload("Replies.Author")
	}
	var post models.Post
	if err := query.First(&post, id).Error; err != nil {
		return nil, notFound(err, "Post not found")
	}
	return &post, nil
}

// GetPost godoc
// @Summary Get a post with replies
// @Description Replies oldest first
// @Tags community
// @Produce json
// @Param id path int true "Post ID"
// @Success 200 {object} utils.SuccessResponse{data=PostView}
// @Failure 404 {object} utils.ErrorResponse
// @Security ApiKeyAuth
// @Router /community/posts/{id} [get]
func (cc *CommunityController) GetPost(c *fiber.Ctx) error {
	post, err := cc.findPost(c, true)
	if err != nil {
		return utils.Fail(c, err)
	}
	view := newPostView(post)
	if view.Replies == nil {
		view.Replies = []ReplyView{}
	}
	return utils.OK(c, view)
}

// CreateReply godoc
// @Summary Reply to a post
// @Tags community
// @Accept json
// @Produce json
// @Param id path int true "Post ID"
// @Param input body CreateReplyRequest true "Reply"
// @Success 201 {object} utils.SuccessResponse{data=ReplyResponse}
// @Failure 404 {object} utils.ErrorResponse
// @Failure 429 {object} utils.ErrorResponse
// @Security ApiKeyAuth
// @Router /community/posts/{id}/replies [post]
func (cc *CommunityController) CreateReply(c *fiber.Ctx) error {
	post, err := cc.findPost(c, false)
	if err != nil {
		return utils.Fail(c, err)
	}
	var input CreateReplyRequest
	if ok, err := utils.ParseBody(c, &input); !ok {
		return err
	}
	ctx := c.UserContext()
	user := currentUser(c)

	reply := models.Reply{PostID: post.ID, UserID: user.ID, Body: input.Body}
	err = cc.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&reply).Error; err != nil {
			return err
		}
		return tx.Model(&models.Post{}).Where("id = ?", post.ID).
			UpdateColumn("reply_count", gorm.Expr("reply_count + ?", 1)).Error
	})
	if err != nil {
		return utils.Fail(c, err)
	}
	reply.Author = *user

	return utils.Created(c, ReplyResponse{
		Reply:     newReplyView(&reply),
		NewBadges: awardBadges(ctx, cc.DB, cc.Logger, user.ID),
	})
}

func canModerate(user *models.User, authorID uint) error {
	if user.IsAdmin || user.ID == authorID {
		return nil
	}
	return apperr.Wrap(apperr.ErrForbidden, "Only the author or an admin can delete this")
}

// DeletePost godoc
// @Summary Delete a post
// @Description Author or admin only; replies are removed with it
// @Tags community
// @Produce json
// @Param id path int true "Post ID"
// @Success 204
// @Failure 403 {object} utils.ErrorResponse
// @Failure 404 {object} utils.ErrorResponse
// @Security ApiKeyAuth
// @Router /community/posts/{id} [delete]
func (cc *CommunityController) DeletePost(c *fiber.Ctx) error {
	post, err := cc.findPost(c, false)
	if err != nil {
		return utils.Fail(c, err)
	}
	if err := canModerate(currentUser(c), post.UserID); err != nil {
		return utils.Fail(c, err)
	}

	err = cc.DB.WithContext(c.UserContext()).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("post_id = ?", post.ID).Delete(&models.Reply{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.Post{}, post.ID).Error
	})
	if err != nil {
		return utils.Fail(c, err)
	}
	return utils.NoContent(c)
}

// DeleteReply godoc
// @Summary Delete a reply
// @Description Author or admin only
// @Tags community
// @Produce json
// @Param id path int true "Reply ID"
// @Success 204
// @Failure 403 {object} utils.ErrorResponse
// @Failure 404 {object} utils.ErrorResponse
// @Security ApiKeyAuth
// @Router /community/replies/{id} [delete]
func (cc *CommunityController) DeleteReply(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return utils.Fail(c, err)
	}
	var reply models.Reply
	if err := cc.DB.WithContext(c.UserContext()).First(&reply, id).Error; err != nil {
		return utils.Fail(c, notFound(err, "Reply not found"))
	}
	if err := canModerate(currentUser(c), reply.UserID); err != nil {
		return utils.Fail(c, err)
	}

	err = cc.DB.WithContext(c.UserContext()).Transaction(func(tx *gorm.DB) error {
		if err := tx.Delete(&reply).Error; err != nil {
			return err
		}
		return tx.Model(&models.Post{}).Where("id = ? AND reply_count > 0", reply.PostID).
			UpdateColumn("reply_count", gorm.Expr("reply_count - ?", 1)).Error
	})
	if err != nil {
		return utils.Fail(c, err)
	}
	return utils.NoContent(c)
}
