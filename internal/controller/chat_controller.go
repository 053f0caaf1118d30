package controller

import (
	"time"

	"school-chat-be/internal/apperror"
	"school-chat-be/internal/dto"
	"school-chat-be/internal/pkg/serverutils"
	"school-chat-be/internal/ratelimit"
	"school-chat-be/internal/service"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type IChatController interface {
	RegisterRoutes(r fiber.Router)
	StartSession(ctx *fiber.Ctx) error
	ListSessions(ctx *fiber.Ctx) error
	ListOpenSessions(ctx *fiber.Ctx) error
	CloseSession(ctx *fiber.Ctx) error
	ReopenSession(ctx *fiber.Ctx) error
	MarkSessionRead(ctx *fiber.Ctx) error
	GetHistory(ctx *fiber.Ctx) error
	SendMessage(ctx *fiber.Ctx) error
	DeleteMessage(ctx *fiber.Ctx) error
	MarkMessageRead(ctx *fiber.Ctx) error
	UnreadCount(ctx *fiber.Ctx) error
	Respond(ctx *fiber.Ctx) error
	Learn(ctx *fiber.Ctx) error
	Suggestions(ctx *fiber.Ctx) error
}

type chatController struct {
	chatService    service.IChatService
	responder      service.IResponderService
	sendLimiter    *ratelimit.Limiter
	historyLimiter *ratelimit.Limiter
}

func NewChatController(
	chatService service.IChatService,
	responder service.IResponderService,
	sendLimiter *ratelimit.Limiter,
	historyLimiter *ratelimit.Limiter,
) IChatController {
	return &chatController{
		chatService:    chatService,
		responder:      responder,
		sendLimiter:    sendLimiter,
		historyLimiter: historyLimiter,
	}
}

func (c *chatController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/chat/v1")
	h.Use(serverutils.JwtMiddleware)

	h.Post("sessions", c.StartSession)
	h.Get("sessions", c.ListSessions)
	h.Get("sessions/open", c.ListOpenSessions)
	h.Post("sessions/:id/close", c.CloseSession)
	h.Post("sessions/:id/reopen", c.ReopenSession)
	h.Post("sessions/:id/read", c.MarkSessionRead)
	h.Get("sessions/:id/messages", ratelimit.Middleware(c.historyLimiter, "history"), c.GetHistory)

	h.Post("messages", ratelimit.Middleware(c.sendLimiter, "send"), c.SendMessage)
	h.Delete("messages/:id", c.DeleteMessage)
	h.Post("messages/:id/read", c.MarkMessageRead)

	h.Get("unread-count", c.UnreadCount)

	h.Post("respond", ratelimit.Middleware(c.sendLimiter, "send"), c.Respond)
	h.Post("learn", c.Learn)
	h.Get("suggestions", c.Suggestions)
}

func (c *chatController) StartSession(ctx *fiber.Ctx) error {
	userId, err := callerId(ctx)
	if err != nil {
		return err
	}

	var req dto.StartSessionRequest
	if err := ctx.BodyParser(&req); err != nil {
		return apperror.Validation("بدنه درخواست نامعتبر است")
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	res, err := c.chatService.StartSession(ctx.Context(), userId, req.UserName)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("گفتگو آماده است", res))
}

func (c *chatController) ListSessions(ctx *fiber.Ctx) error {
	userId, err := callerId(ctx)
	if err != nil {
		return err
	}

	res, err := c.chatService.ListUserSessions(ctx.Context(), userId)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("فهرست گفتگوها", res))
}

func (c *chatController) ListOpenSessions(ctx *fiber.Ctx) error {
	if err := requireAdmin(ctx); err != nil {
		return err
	}

	res, err := c.chatService.ListOpenSessions(ctx.Context())
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("گفتگوهای باز", res))
}

func (c *chatController) CloseSession(ctx *fiber.Ctx) error {
	if err := requireAdmin(ctx); err != nil {
		return err
	}
	adminId, err := callerId(ctx)
	if err != nil {
		return err
	}
	chatId, err := paramId(ctx, "id")
	if err != nil {
		return err
	}

	var req dto.CloseSessionRequest
	if err := ctx.BodyParser(&req); err != nil {
		return apperror.Validation("بدنه درخواست نامعتبر است")
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	res, err := c.chatService.CloseSession(ctx.Context(), chatId, adminId, req.AdminName)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("گفتگو بسته شد", res))
}

func (c *chatController) ReopenSession(ctx *fiber.Ctx) error {
	if err := requireAdmin(ctx); err != nil {
		return err
	}
	chatId, err := paramId(ctx, "id")
	if err != nil {
		return err
	}

	res, err := c.chatService.ReopenSession(ctx.Context(), chatId)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("گفتگو دوباره باز شد", res))
}

func (c *chatController) MarkSessionRead(ctx *fiber.Ctx) error {
	userId, err := callerId(ctx)
	if err != nil {
		return err
	}
	chatId, err := paramId(ctx, "id")
	if err != nil {
		return err
	}

	if err := c.chatService.MarkSessionRead(ctx.Context(), chatId, userId); err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse[any]("پیام‌ها خوانده شدند", nil))
}

func (c *chatController) GetHistory(ctx *fiber.Ctx) error {
	chatId, err := paramId(ctx, "id")
	if err != nil {
		return err
	}

	limit := ctx.QueryInt("limit", 50)

	var before *time.Time
	if raw := ctx.Query("before"); raw != "" {
		parsed, err := time.Parse(time.RFC3339Nano, raw)
		if err != nil {
			return apperror.Validation("پارامتر before نامعتبر است")
		}
		before = &parsed
	}

	res, err := c.chatService.GetHistory(ctx.Context(), chatId, limit, before)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("تاریخچه گفتگو", res))
}

func (c *chatController) SendMessage(ctx *fiber.Ctx) error {
	userId, err := callerId(ctx)
	if err != nil {
		return err
	}
	userName, _ := ctx.Locals("user_name").(string)

	var req dto.SendMessageRequest
	if err := ctx.BodyParser(&req); err != nil {
		return apperror.Validation("بدنه درخواست نامعتبر است")
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	res, err := c.chatService.SendMessage(ctx.Context(), userId, userName, &req)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("پیام ارسال شد", res))
}

func (c *chatController) DeleteMessage(ctx *fiber.Ctx) error {
	userId, err := callerId(ctx)
	if err != nil {
		return err
	}
	messageId, err := paramId(ctx, "id")
	if err != nil {
		return err
	}

	res, err := c.chatService.DeleteMessage(ctx.Context(), messageId, userId)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("پیام حذف شد", res))
}

func (c *chatController) MarkMessageRead(ctx *fiber.Ctx) error {
	messageId, err := paramId(ctx, "id")
	if err != nil {
		return err
	}

	if err := c.chatService.MarkMessageRead(ctx.Context(), messageId); err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse[any]("پیام خوانده شد", nil))
}

func (c *chatController) UnreadCount(ctx *fiber.Ctx) error {
	userId, err := callerId(ctx)
	if err != nil {
		return err
	}

	count, err := c.chatService.UnreadCount(ctx.Context(), userId)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("تعداد پیام‌های خوانده‌نشده", dto.UnreadCountResponse{Count: count}))
}

func (c *chatController) Respond(ctx *fiber.Ctx) error {
	var req dto.ProcessMessageRequest
	if err := ctx.BodyParser(&req); err != nil {
		return apperror.Validation("بدنه درخواست نامعتبر است")
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	res, err := c.responder.ProcessMessage(ctx.Context(), &req)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("پاسخ تولید شد", res))
}

func (c *chatController) Learn(ctx *fiber.Ctx) error {
	if err := requireAdmin(ctx); err != nil {
		return err
	}

	var req dto.LearnMessageRequest
	if err := ctx.BodyParser(&req); err != nil {
		return apperror.Validation("بدنه درخواست نامعتبر است")
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	res, err := c.responder.LearnFromConversation(ctx.Context(), &req)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("پیام ثبت شد", res))
}

func (c *chatController) Suggestions(ctx *fiber.Ctx) error {
	text := ctx.Query("text")

	res, err := c.responder.GenerateSuggestions(ctx.Context(), text)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("پیشنهادها", res))
}

func callerId(ctx *fiber.Ctx) (uuid.UUID, error) {
	userIdStr, ok := ctx.Locals("user_id").(string)
	if !ok {
		return uuid.Nil, apperror.Unauthorized("هویت کاربر نامعتبر است")
	}
	userId, err := uuid.Parse(userIdStr)
	if err != nil {
		return uuid.Nil, apperror.Unauthorized("هویت کاربر نامعتبر است")
	}
	return userId, nil
}

func requireAdmin(ctx *fiber.Ctx) error {
	if role, _ := ctx.Locals("role").(string); role != "admin" {
		return apperror.Unauthorized("دسترسی فقط برای مدیران مجاز است")
	}
	return nil
}

func paramId(ctx *fiber.Ctx, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(ctx.Params(name))
	if err != nil {
		return uuid.Nil, apperror.Validation("شناسه نامعتبر است")
	}
	return id, nil
}
