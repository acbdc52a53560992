package social

import (
	"errors"

	"github.com/gofiber/fiber/v2"
)

func RegisterRoutes(r fiber.Router, svc *Service, authMiddleware fiber.Handler) {
	r.Get("/posts", func(c *fiber.Ctx) error {
		feed, err := svc.GlobalFeed(c.UserContext())
		if err != nil {
			return httpError(err)
		}
		return c.JSON(feed)
	})

	r.Get("/posts/latest", func(c *fiber.Ctx) error {
		entry, err := svc.LatestPost(c.UserContext())
		if err != nil {
			return httpError(err)
		}
		return c.JSON(entry)
	})

	r.Get("/posts/:id", func(c *fiber.Ctx) error {
		entry, err := svc.SinglePost(c.UserContext(), c.Params("id"))
		if err != nil {
			return httpError(err)
		}
		return c.JSON(entry)
	})

	r.Post("/posts", authMiddleware, func(c *fiber.Ctx) error {
		userID, err := currentUser(c)
		if err != nil {
			return err
		}
		var body struct {
			Content string `json:"content"`
		}
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid payload")
		}
		post, err := svc.CreatePost(c.UserContext(), userID, body.Content)
		if err != nil {
			return httpError(err)
		}
		return c.Status(fiber.StatusCreated).JSON(post)
	})

	r.Delete("/posts/:id", authMiddleware, func(c *fiber.Ctx) error {
		userID, err := currentUser(c)
		if err != nil {
			return err
		}
		post, err := svc.DeletePost(c.UserContext(), c.Params("id"), userID)
		if err != nil {
			return httpError(err)
		}
		return c.JSON(post)
	})

	r.Post("/posts/:id/like", authMiddleware, func(c *fiber.Ctx) error {
		userID, err := currentUser(c)
		if err != nil {
			return err
		}
		if _, err := svc.ToggleLike(c.UserContext(), c.Params("id"), userID); err != nil {
			return httpError(err)
		}
		return c.SendStatus(fiber.StatusNoContent)
	})

	r.Post("/posts/:id/retweet", authMiddleware, func(c *fiber.Ctx) error {
		userID, err := currentUser(c)
		if err != nil {
			return err
		}
		rt, err := svc.ToggleRetweet(c.UserContext(), c.Params("id"), userID)
		if err != nil {
			return httpError(err)
		}
		if rt == nil {
			return c.SendStatus(fiber.StatusNoContent)
		}
		return c.Status(fiber.StatusCreated).JSON(rt)
	})

	r.Get("/users", func(c *fiber.Ctx) error {
		users, err := svc.Users(c.UserContext())
		if err != nil {
			return httpError(err)
		}
		return c.JSON(users)
	})

	r.Get("/users/:username", func(c *fiber.Ctx) error {
		user, err := svc.Profile(c.UserContext(), c.Params("username"))
		if err != nil {
			return httpError(err)
		}
		return c.JSON(user)
	})

	r.Get("/users/:username/feed", func(c *fiber.Ctx) error {
		feed, err := svc.UserFeed(c.UserContext(), c.Params("username"))
		if err != nil {
			return httpError(err)
		}
		return c.JSON(feed)
	})

	r.Get("/me/likes", authMiddleware, func(c *fiber.Ctx) error {
		userID, err := currentUser(c)
		if err != nil {
			return err
		}
		feed, err := svc.LikedFeed(c.UserContext(), userID)
		if err != nil {
			return httpError(err)
		}
		return c.JSON(feed)
	})
}

func currentUser(c *fiber.Ctx) (string, error) {
	userID, _ := c.Locals("user_id").(string)
	if userID == "" {
		return "", fiber.NewError(fiber.StatusUnauthorized, "sign in required")
	}
	return userID, nil
}

// httpError maps domain error kinds onto HTTP statuses.
func httpError(err error) error {
	switch {
	case errors.Is(err, ErrValidation):
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	case errors.Is(err, ErrNotFound):
		return fiber.NewError(fiber.StatusNotFound, err.Error())
	case errors.Is(err, ErrUnauthorized):
		return fiber.NewError(fiber.StatusForbidden, err.Error())
	case errors.Is(err, ErrConflict):
		return fiber.NewError(fiber.StatusConflict, err.Error())
	case errors.Is(err, ErrRateLimited):
		return fiber.NewError(fiber.StatusTooManyRequests, ErrRateLimited.Error())
	case errors.Is(err, ErrDependencyUnavailable):
		log.Error("%v", err)
		return fiber.NewError(fiber.StatusServiceUnavailable, "service temporarily unavailable")
	case errors.Is(err, ErrAuthorNotFound):
		log.Error("%v", err)
		return fiber.NewError(fiber.StatusInternalServerError, err.Error())
	default:
		log.Error("unexpected error: %v", err)
		return fiber.NewError(fiber.StatusInternalServerError, "internal server error")
	}
}
