package splitwise

// Raw response shapes of the Splitwise v3 REST API. Every monetary value is a
// decimal string on the wire.

type apiUser struct {
	ID        int64  `json:"id"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

type apiExpenseUser struct {
	User      apiUser `json:"user"`
	PaidShare string  `json:"paid_share"`
	OwedShare string  `json:"owed_share"`
}

type apiCategory struct {
	ID            int64         `json:"id"`
	Name          string        `json:"name"`
	Subcategories []apiCategory `json:"subcategories"`
}

type apiExpense struct {
	ID            int64            `json:"id"`
	Description   string           `json:"description"`
	Details       string           `json:"details"`
	Payment       bool             `json:"payment"`
	Cost          string           `json:"cost"`
	Date          string           `json:"date"` // RFC3339, always UTC
	CommentsCount int              `json:"comments_count"`
	DeletedAt     *string          `json:"deleted_at"`
	Category      apiCategory      `json:"category"`
	Users         []apiExpenseUser `json:"users"`
}

type apiComment struct {
	ID      int64   `json:"id"`
	Content string  `json:"content"`
	User    apiUser `json:"user"`
}

type expensesResponse struct {
	Expenses []apiExpense `json:"expenses"`
}

type currentUserResponse struct {
	User apiUser `json:"user"`
}

type commentsResponse struct {
	Comments []apiComment `json:"comments"`
}

type categoriesResponse struct {
	Categories []apiCategory `json:"categories"`
}
