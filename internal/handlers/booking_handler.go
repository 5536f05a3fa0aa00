package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/joshua-takyi/servicehub/internal/helpers"
	"github.com/joshua-takyi/servicehub/internal/models"
	"github.com/joshua-takyi/servicehub/internal/services"
)

type statusRequest struct {
	Status string `json:"status" binding:"required"`
	Reason string `json:"reason"`
	Note   string `json:"note"`
}

func CreateBooking(bs BookingAPI) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, _, ok := actor(c)
		if !ok {
			return
		}

		var in services.CreateBookingInput
		if err := c.ShouldBindJSON(&in); err != nil {
			c.JSON(http.StatusBadRequest, helpers.ErrorResponse("invalid request payload: "+err.Error()))
			return
		}
		in.CustomerID = userID

		booking, err := bs.CreateBooking(c.Request.Context(), in)
		respondMutation(c, http.StatusCreated, booking, booking != nil, err, "booking created successfully")
	}
}

func ListBookings(bs BookingAPI) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, role, ok := actor(c)
		if !ok {
			return
		}
		offset, limit, ok := pagination(c)
		if !ok {
			return
		}

		bookings, total, err := bs.ListBookings(c.Request.Context(), services.ListBookingsInput{
			ActorID:   userID,
			ActorRole: role,
			Status:    models.BookingStatus(c.Query("status")),
			Offset:    offset,
			Limit:     limit,
		})
		if err != nil {
			respondError(c, err)
			return
		}

		page := offset/limit + 1
		c.JSON(http.StatusOK, helpers.PaginatedResponse(bookings, page, limit, total))
	}
}

func GetBooking(bs BookingAPI) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, role, ok := actor(c)
		if !ok {
			return
		}
		id, ok := uuidParam(c, "id")
		if !ok {
			return
		}

		booking, err := bs.GetBooking(c.Request.Context(), id, userID, role)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, helpers.SuccessResponse(booking, "booking retrieved successfully"))
	}
}

// UpdateBookingStatus moves a booking through its lifecycle on behalf of its customer or provider.
func UpdateBookingStatus(bs BookingAPI) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, role, ok := actor(c)
		if !ok {
			return
		}
		id, ok := uuidParam(c, "id")
		if !ok {
			return
		}

		var req statusRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, helpers.ErrorResponse("invalid request payload: "+err.Error()))
			return
		}

		booking, err := bs.ChangeStatus(c.Request.Context(), services.ChangeStatusInput{
			BookingID: id,
			ActorID:   userID,
			ActorRole: role,
			Target:    models.BookingStatus(req.Status),
			Reason:    req.Reason,
			Note:      req.Note,
		})
		respondMutation(c, http.StatusOK, booking, booking != nil, err, "booking status updated successfully")
	}
}

func RescheduleBooking(bs BookingAPI) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, role, ok := actor(c)
		if !ok {
			return
		}
		id, ok := uuidParam(c, "id")
		if !ok {
			return
		}

		var req struct {
			Date string `json:"date" binding:"required"`
			Time string `json:"time" binding:"required"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, helpers.ErrorResponse("invalid request payload: "+err.Error()))
			return
		}

		booking, err := bs.RescheduleBooking(c.Request.Context(), services.RescheduleInput{
			BookingID: id,
			ActorID:   userID,
			ActorRole: role,
			Date:      req.Date,
			Time:      req.Time,
		})
		respondMutation(c, http.StatusOK, booking, booking != nil, err, "booking rescheduled successfully")
	}
}

func UpdateBookingNotes(bs BookingAPI) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, role, ok := actor(c)
		if !ok {
			return
		}
		id, ok := uuidParam(c, "id")
		if !ok {
			return
		}

		var req struct {
			Notes string `json:"notes"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, helpers.ErrorResponse("invalid request payload: "+err.Error()))
			return
		}

		booking, err := bs.SetNotes(c.Request.Context(), id, userID, role, req.Notes)
		respondMutation(c, http.StatusOK, booking, booking != nil, err, "booking notes updated successfully")
	}
}

// UploadServicePhotos accepts base64 data URIs or remote URLs of the finished work.
func UploadServicePhotos(bs BookingAPI) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, _, ok := actor(c)
		if !ok {
			return
		}
		id, ok := uuidParam(c, "id")
		if !ok {
			return
		}

		var req struct {
			Images []string `json:"images" binding:"required,min=1"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, helpers.ErrorResponse("invalid request payload: "+err.Error()))
			return
		}

		booking, err := bs.AttachServicePhotos(c.Request.Context(), id, userID, req.Images)
		respondMutation(c, http.StatusOK, booking, booking != nil, err, "service photos uploaded successfully")
	}
}

func ClaimBooking(bs BookingAPI) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, _, ok := actor(c)
		if !ok {
			return
		}
		id, ok := uuidParam(c, "id")
		if !ok {
			return
		}

		booking, err := bs.ClaimBooking(c.Request.Context(), id, userID)
		respondMutation(c, http.StatusOK, booking, booking != nil, err, "booking claimed successfully")
	}
}

// ListCandidates previews the providers that could serve a service, optionally ranked from ?lat=&lng=.
func ListCandidates(bs BookingAPI) gin.HandlerFunc {
	return func(c *gin.Context) {
		serviceID, ok := uuidParam(c, "id")
		if !ok {
			return
		}

		var customer *models.GeoPoint
		latRaw, lngRaw := c.Query("lat"), c.Query("lng")
		if latRaw != "" || lngRaw != "" {
			lat, latErr := strconv.ParseFloat(latRaw, 64)
			lng, lngErr := strconv.ParseFloat(lngRaw, 64)
			if latErr != nil || lngErr != nil {
				c.JSON(http.StatusBadRequest, helpers.ErrorResponse("lat and lng must both be valid numbers"))
				return
			}
			customer = &models.GeoPoint{Latitude: lat, Longitude: lng}
		}

		candidates, err := bs.FindCandidates(c.Request.Context(), serviceID, customer)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, helpers.SuccessResponse(candidates, "candidates retrieved successfully"))
	}
}
