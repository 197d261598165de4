// AngelaMos | 2026
// dto.go

package content

type ListFoldersParams struct {
	Department string `json:"department"`
	Semester   string `json:"semester"`
	Subject    string `json:"subject"`
}

type CreateFolderRequest struct {
	Name        string `json:"name"        validate:"required,min=1,max=200"`
	Description string `json:"description" validate:"omitempty,max=1000"`
	Department  string `json:"department"  validate:"required,min=1,max=100"`
	Semester    string `json:"semester"    validate:"required,min=1,max=50"`
	Subject     string `json:"subject"     validate:"required,min=1,max=200"`
	Price       int    `json:"price"       validate:"omitempty,min=0"`
}

type UploadNoteRequest struct {
	Title string `json:"title" validate:"required,min=1,max=300"`
}

type FolderResponse struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Department  string `json:"department"`
	Semester    string `json:"semester"`
	Subject     string `json:"subject"`
	Price       int    `json:"price"`
}

func ToFolderResponse(f *Folder) FolderResponse {
	return FolderResponse{
		ID:          f.ID,
		Name:        f.Name,
		Description: f.Description,
		Department:  f.Department,
		Semester:    f.Semester,
		Subject:     f.Subject,
		Price:       f.Price,
	}
}

func ToFolderResponseList(folders []Folder) []FolderResponse {
	responses := make([]FolderResponse, 0, len(folders))
	for i := range folders {
		responses = append(responses, ToFolderResponse(&folders[i]))
	}
	return responses
}
