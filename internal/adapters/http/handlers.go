package http

import (
	"errors"
	"io"
	"mime/multipart"

	"github.com/gofiber/fiber/v2"
	"github.com/valyala/fasthttp"

	"github.com/samirrijal/rateplan/internal/core/domain"
)

const (
	// formFilesField is the repeated multipart field carrying uploads.
	formFilesField = "files"
	inputCRSField  = "input_crs"
)

// readUploads loads every file of the multipart "files" field into memory and
// returns the parsed form. A request without any file yields an empty slice,
// which the pipeline rejects as no_spatial_data.
func readUploads(c *fiber.Ctx) ([]domain.Upload, *multipart.Form, error) {
	form, err := c.MultipartForm()
	if err != nil {
		if errors.Is(err, fasthttp.ErrNoMultipartForm) {
			return nil, nil, nil
		}
		return nil, nil, err
	}

	headers := form.File[formFilesField]
	uploads := make([]domain.Upload, 0, len(headers))
	for _, fh := range headers {
		f, err := fh.Open()
		if err != nil {
			return nil, nil, err
		}
		data, err := io.ReadAll(f)
		f.Close()
		if err != nil {
			return nil, nil, err
		}
		uploads = append(uploads, domain.Upload{Name: fh.Filename, Data: data})
	}
	return uploads, form, nil
}

// inputCRS takes input_crs from the multipart form, then from the query
// string.
func inputCRS(c *fiber.Ctx, form *multipart.Form) string {
	if form != nil {
		for _, v := range form.Value[inputCRSField] {
			if v != "" {
				return v
			}
		}
	}
	return c.Query(inputCRSField)
}

// IndexHandler redirects the root to the bundled map client.
func IndexHandler(deps *Dependencies) fiber.Handler {
	target := "/static/" + deps.Config.withDefaults().IndexPage
	return func(c *fiber.Ctx) error {
		return c.Redirect(target, fiber.StatusTemporaryRedirect)
	}
}

// ConvertPlanHandler converts an uploaded rate plan to WGS84 GeoJSON with
// normalized rates.
func ConvertPlanHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		uploads, form, err := readUploads(c)
		if err != nil {
			return errBadRequest(c, "invalid multipart form: "+err.Error())
		}

		conv, err := deps.Projects.ConvertPlan(c.UserContext(), uploads, inputCRS(c, form))
		if err != nil {
			return writeDomainError(c, err)
		}
		return c.JSON(conv)
	}
}

// ConvertBoundaryHandler converts an uploaded field boundary to WGS84 GeoJSON.
func ConvertBoundaryHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		uploads, form, err := readUploads(c)
		if err != nil {
			return errBadRequest(c, "invalid multipart form: "+err.Error())
		}

		conv, err := deps.Projects.ConvertBoundary(c.UserContext(), uploads, inputCRS(c, form))
		if err != nil {
			return writeDomainError(c, err)
		}
		return c.JSON(conv)
	}
}

// ConvertPlanToProjectHandler converts an uploaded plan straight into a
// project file with a synthesized boundary.
func ConvertPlanToProjectHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		uploads, form, err := readUploads(c)
		if err != nil {
			return errBadRequest(c, "invalid multipart form: "+err.Error())
		}

		project, err := deps.Projects.ConvertPlanToProject(c.UserContext(), uploads, inputCRS(c, form))
		if err != nil {
			return writeDomainError(c, err)
		}
		return c.JSON(project)
	}
}

// CreateProjectHandler completes a project file posted as JSON.
func CreateProjectHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		p, err := domain.DecodeProjectFile(c.Body())
		if err != nil {
			return writeDomainError(c, err)
		}

		project, err := deps.Projects.CreateProject(c.UserContext(), p)
		if err != nil {
			return writeDomainError(c, err)
		}
		return c.JSON(project)
	}
}
