package grpc

import (
	"time"

	"github.com/dmitrijs2005/idkeeper/internal/server/auth"
	"github.com/dmitrijs2005/idkeeper/internal/server/models"
	"github.com/dmitrijs2005/idkeeper/internal/server/services"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
)

// request reads typed fields out of a Struct. The first type mismatch is
// kept in err and reported as InvalidArgument.
type request struct {
	fields map[string]*structpb.Value
	err    error
}

func newRequest(in *structpb.Struct) *request {
	return &request{fields: in.GetFields()}
}

func (r *request) fail(key, want string) {
	if r.err == nil {
		r.err = status.Errorf(codes.InvalidArgument, "field %q must be %s", key, want)
	}
}

// optStr returns nil when key is absent or null.
func (r *request) optStr(key string) *string {
	v, ok := r.fields[key]
	if !ok {
		return nil
	}
	switch k := v.GetKind().(type) {
	case *structpb.Value_NullValue:
		return nil
	case *structpb.Value_StringValue:
		s := k.StringValue
		return &s
	}
	r.fail(key, "a string")
	return nil
}

func (r *request) str(key string) string {
	if s := r.optStr(key); s != nil {
		return *s
	}
	return ""
}

// strs returns nil when key is absent, an empty non-nil slice for [].
func (r *request) strs(key string) []string {
	v, ok := r.fields[key]
	if !ok {
		return nil
	}
	if _, null := v.GetKind().(*structpb.Value_NullValue); null {
		return nil
	}
	list := v.GetListValue()
	if list == nil {
		r.fail(key, "a list of strings")
		return nil
	}
	out := make([]string, 0, len(list.GetValues()))
	for _, item := range list.GetValues() {
		s, ok := item.GetKind().(*structpb.Value_StringValue)
		if !ok {
			r.fail(key, "a list of strings")
			return nil
		}
		out = append(out, s.StringValue)
	}
	return out
}

func (r *request) roles(key string) []models.Role {
	names := r.strs(key)
	if names == nil {
		return nil
	}
	roles, err := models.ParseRoles(names)
	if err != nil {
		if r.err == nil {
			r.err = status.Error(codes.InvalidArgument, err.Error())
		}
		return nil
	}
	return roles
}

func (r *request) userInput() services.UserInput {
	return services.UserInput{
		UserName:        r.str("username"),
		Email:           r.str("email"),
		Password:        r.str("password"),
		ConfirmPassword: r.str("confirm_password"),
		FirstName:       r.str("first_name"),
		LastName:        r.str("last_name"),
		Office:          r.str("office"),
		PhoneNumber:     r.str("phone_number"),
		JobTitle:        r.str("job_title"),
		LinkedIn:        r.str("linkedin"),
		Certificates:    r.strs("certificates"),
		Roles:           r.roles("roles"),
	}
}

func (r *request) updateInput() services.UpdateInput {
	return services.UpdateInput{
		UserName:     r.str("username"),
		Email:        r.optStr("email"),
		FirstName:    r.optStr("first_name"),
		LastName:     r.optStr("last_name"),
		Office:       r.optStr("office"),
		PhoneNumber:  r.optStr("phone_number"),
		JobTitle:     r.optStr("job_title"),
		LinkedIn:     r.optStr("linkedin"),
		Certificates: r.strs("certificates"),
		Roles:        r.roles("roles"),
		Password:     r.optStr("password"),
	}
}

func stringList(values []string) *structpb.Value {
	items := make([]*structpb.Value, len(values))
	for i, v := range values {
		items[i] = structpb.NewStringValue(v)
	}
	return structpb.NewListValue(&structpb.ListValue{Values: items})
}

func userFields(u *models.User) map[string]*structpb.Value {
	return map[string]*structpb.Value{
		"id":           structpb.NewStringValue(u.ID),
		"username":     structpb.NewStringValue(u.UserName),
		"email":        structpb.NewStringValue(u.Email),
		"first_name":   structpb.NewStringValue(u.FirstName),
		"last_name":    structpb.NewStringValue(u.LastName),
		"office":       structpb.NewStringValue(u.Office),
		"phone_number": structpb.NewStringValue(u.PhoneNumber),
		"job_title":    structpb.NewStringValue(u.JobTitle),
		"linkedin":     structpb.NewStringValue(u.LinkedIn),
		"certificates": stringList(u.Certificates),
		"roles":        stringList(models.RoleNames(u.Roles)),
		"created_at":   structpb.NewStringValue(u.CreatedAt.UTC().Format(time.RFC3339)),
		"updated_at":   structpb.NewStringValue(u.UpdatedAt.UTC().Format(time.RFC3339)),
	}
}

func userValue(u *models.User) *structpb.Value {
	return structpb.NewStructValue(&structpb.Struct{Fields: userFields(u.Public())})
}

func userResponse(u *models.User) *structpb.Struct {
	return &structpb.Struct{Fields: map[string]*structpb.Value{"user": userValue(u)}}
}

func usersResponse(users []*models.User) *structpb.Struct {
	items := make([]*structpb.Value, len(users))
	for i, u := range users {
		items[i] = userValue(u)
	}
	return &structpb.Struct{Fields: map[string]*structpb.Value{
		"users": structpb.NewListValue(&structpb.ListValue{Values: items}),
	}}
}

func principalResponse(p auth.Principal) *structpb.Struct {
	return &structpb.Struct{Fields: map[string]*structpb.Value{
		"valid":    structpb.NewBoolValue(true),
		"sub":      structpb.NewStringValue(p.SubjectID),
		"username": structpb.NewStringValue(p.UserName),
		"roles":    stringList(models.RoleNames(p.Roles)),
	}}
}

func okResponse(message string) *structpb.Struct {
	return &structpb.Struct{Fields: map[string]*structpb.Value{
		"message": structpb.NewStringValue(message),
	}}
}
