package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/growcoach/jobboard/internal/services"
	"github.com/growcoach/jobboard/internal/storage"
	appErrors "github.com/growcoach/jobboard/pkg/errors"
)

const maxSectionEntries = 50

func isMultipart(c *gin.Context) bool {
	return strings.HasPrefix(c.ContentType(), "multipart/form-data")
}

// saveUpload stores the optional file in field. A missing file yields "".
func saveUpload(c *gin.Context, files *storage.FileStore, field, prefix, ownerID string, allowed []string) (string, error) {
	header, err := c.FormFile(field)
	if errors.Is(err, http.ErrMissingFile) {
		return "", nil
	}
	if err != nil {
		return "", appErrors.NewBadRequest(fmt.Sprintf("Invalid %s upload", field))
	}
	return files.Save(requestContext(c), prefix, ownerID, header, allowed)
}

// uploadSet tracks files written during one request so they can be removed
// when the request fails.
type uploadSet struct {
	files *storage.FileStore
	names []string
}

func (u *uploadSet) save(c *gin.Context, field, prefix, ownerID string, allowed []string) (string, error) {
	name, err := saveUpload(c, u.files, field, prefix, ownerID, allowed)
	if err == nil && name != "" {
		u.names = append(u.names, name)
	}
	return name, err
}

func (u *uploadSet) rollback() {
	for _, name := range u.names {
		u.files.Remove(name)
	}
	u.names = nil
}

func formString(c *gin.Context, key string) *string {
	value, ok := c.GetPostForm(key)
	if !ok {
		return nil
	}
	return &value
}

func formBool(c *gin.Context, key string) (*bool, error) {
	value, ok := c.GetPostForm(key)
	if !ok {
		return nil, nil
	}
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "on", "yes":
		v := true
		return &v, nil
	case "", "off", "no":
		v := false
		return &v, nil
	}
	parsed, err := strconv.ParseBool(strings.TrimSpace(value))
	if err != nil {
		return nil, appErrors.NewBadRequest(fmt.Sprintf("%s must be a boolean", key))
	}
	return &parsed, nil
}

func formInt(c *gin.Context, key string) (*int, error) {
	value, ok := c.GetPostForm(key)
	if !ok {
		return nil, nil
	}
	value = strings.TrimSpace(value)
	if value == "" {
		zero := 0
		return &zero, nil
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return nil, appErrors.NewBadRequest(fmt.Sprintf("%s must be a number", key))
	}
	return &parsed, nil
}

// formSkills accepts repeated skills fields or one comma separated value.
func formSkills(c *gin.Context) []string {
	values, ok := c.GetPostFormArray("skills")
	if !ok {
		return nil
	}
	return values
}

// formSection reads a profile section either as a JSON document in the field
// itself or as indexed fields: <name>_count and <name>[i][key].
func formSection(c *gin.Context, name string) (json.RawMessage, error) {
	if raw, ok := c.GetPostForm(name); ok {
		return json.RawMessage(raw), nil
	}
	countValue, ok := c.GetPostForm(name + "_count")
	if !ok {
		return nil, nil
	}
	count, err := strconv.Atoi(strings.TrimSpace(countValue))
	if err != nil || count < 0 {
		return nil, appErrors.NewBadRequest(fmt.Sprintf("%s_count must be a number", name))
	}
	if count > maxSectionEntries {
		return nil, appErrors.ErrValidation.WithMessage(fmt.Sprintf("%s accepts at most %d entries", name, maxSectionEntries))
	}

	fields := services.SectionFields(name)
	entries := make([]map[string]string, 0, count)
	for i := 0; i < count; i++ {
		entry := make(map[string]string, len(fields))
		for _, field := range fields {
			if value := strings.TrimSpace(c.PostForm(fmt.Sprintf("%s[%d][%s]", name, i, field))); value != "" {
				entry[field] = value
			}
		}
		if len(entry) == 0 {
			continue
		}
		entries = append(entries, entry)
	}
	raw, err := json.Marshal(entries)
	if err != nil {
		return nil, err
	}
	return raw, nil
}
