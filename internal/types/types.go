package types

// RepoRef identifies one repository by owner and name.
type RepoRef struct {
	Owner string `json:"owner" binding:"required"`
	Name  string `json:"name" binding:"required"`
}

// CompareRequest is the request body of the comparison endpoint.
type CompareRequest struct {
	Repositories []RepoRef `json:"repositories" binding:"required,min=1,dive"`
}
