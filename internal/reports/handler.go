package reports

import (
	"bytes"
	"errors"
	"fmt"
	"time"

	"kiosk-backend/internal/logging"

	"github.com/gofiber/fiber/v2"
)

// GET /api/manager/menu-stats?period=day|week|month
func MenuStatsHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		period, err := ParsePeriod(c.Query("period"), time.Now())
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		stats, err := svc.MenuStats(c.UserContext(), period)
		if err != nil {
			return reportError(c, err)
		}
		return c.JSON(stats)
	}
}

// GET /api/manager/reports/x-report[?format=xlsx]
func XReportHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		report, err := svc.XReport(c.UserContext(), time.Now())
		if err != nil {
			return reportError(c, err)
		}

		if c.Query("format") == "xlsx" {
			buf, err := XReportWorkbook(report)
			if err != nil {
				return reportError(c, err)
			}
			return sendWorkbook(c, "x-report-"+report.Date+".xlsx", buf)
		}
		return c.JSON(report)
	}
}

// GET /api/manager/reports/product-usage?startDate=2025-01-01&endDate=2025-01-31[&format=xlsx]
func ProductUsageHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		start, end, err := ParseDateRange(c.Query("startDate"), c.Query("endDate"))
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		report, err := svc.ProductUsage(c.UserContext(), start, end)
		if err != nil {
			return reportError(c, err)
		}

		if c.Query("format") == "xlsx" {
			buf, err := ProductUsageWorkbook(report)
			if err != nil {
				return reportError(c, err)
			}
			return sendWorkbook(c, fmt.Sprintf("product-usage-%s-%s.xlsx", report.StartDate, report.EndDate), buf)
		}
		return c.JSON(report)
	}
}

func sendWorkbook(c *fiber.Ctx, filename string, buf *bytes.Buffer) error {
	c.Set(fiber.HeaderContentType, xlsxContentType)
	c.Set(fiber.HeaderContentDisposition, fmt.Sprintf(`attachment; filename="%s"`, filename))
	return c.Send(buf.Bytes())
}

func reportError(c *fiber.Ctx, err error) error {
	if errors.Is(err, ErrInvalidRange) {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	logging.FromContext(c.UserContext()).WithError(err).Error("Report failed")
	return fiber.NewError(fiber.StatusInternalServerError, "Failed to generate report: "+err.Error())
}
