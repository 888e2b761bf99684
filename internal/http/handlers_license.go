package http

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"audioverter/internal/license"
)

// verifyLicenseHandler relays a license key to the external authority
// and reports its verdict. The key itself is never interpreted here.
func verifyLicenseHandler(c *fiber.Ctx) error {
	verifier := c.Locals("verifier").(license.Verifier)

	var req VerifyLicenseRequest
	if err := c.BodyParser(&req); err != nil || strings.TrimSpace(req.LicenseKey) == "" {
		return c.Status(fiber.StatusBadRequest).JSON(VerifyLicenseResponse{
			Success: false,
			Code:    "BAD_REQUEST",
			Error:   "License key is required",
		})
	}

	ok, err := verifier.Verify(c.Context(), req.LicenseKey)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(VerifyLicenseResponse{
			Success: false,
			Code:    "INTERNAL_ERROR",
			Error:   "Error verifying license",
		})
	}
	if !ok {
		return c.Status(fiber.StatusBadRequest).JSON(VerifyLicenseResponse{
			Success: false,
			Code:    "INVALID_LICENSE",
			Error:   "Invalid license key",
		})
	}

	return c.Status(fiber.StatusOK).JSON(VerifyLicenseResponse{
		Success: true,
		Message: "License verified successfully",
	})
}

// plansHandler returns the static subscription plan catalog.
func plansHandler(c *fiber.Ctx) error {
	return c.Status(fiber.StatusOK).JSON(license.Plans())
}
