package chain

import "encoding/json"

const messagesQuery = `query Messages($address: String!, $first: Int!, $after: String) {
  blockchain {
    account(address: $address) {
      messages(first: $first, msg_type: [IntIn], after: $after) {
        edges {
          node {
            id
            created_at
            src
            value_other { currency value }
            body
          }
        }
        pageInfo { endCursor hasNextPage }
      }
    }
  }
}`

const balanceQuery = `query Balance($address: String!) {
  blockchain {
    account(address: $address) {
      info { balance_other { currency value } }
    }
  }
}`

type currencyValue struct {
	Currency json.Number `json:"currency"`
	Value    string      `json:"value"`
}

type messageNode struct {
	ID         string          `json:"id"`
	CreatedAt  json.Number     `json:"created_at"`
	Src        string          `json:"src"`
	ValueOther []currencyValue `json:"value_other"`
	Body       *string         `json:"body"`
}

type pageInfo struct {
	EndCursor   *string `json:"endCursor"`
	HasNextPage bool    `json:"hasNextPage"`
}

type messagesPage struct {
	Edges []struct {
		Node *messageNode `json:"node"`
	} `json:"edges"`
	PageInfo *pageInfo `json:"pageInfo"`
}

type messagesData struct {
	Blockchain *struct {
		Account *struct {
			Messages *messagesPage `json:"messages"`
		} `json:"account"`
	} `json:"blockchain"`
}

func (d messagesData) page() *messagesPage {
	if d.Blockchain == nil || d.Blockchain.Account == nil {
		return nil
	}
	return d.Blockchain.Account.Messages
}

type balanceData struct {
	Blockchain *struct {
		Account *struct {
			Info *struct {
				BalanceOther []currencyValue `json:"balance_other"`
			} `json:"info"`
		} `json:"account"`
	} `json:"blockchain"`
}

func (d balanceData) values() []currencyValue {
	if d.Blockchain == nil || d.Blockchain.Account == nil || d.Blockchain.Account.Info == nil {
		return nil
	}
	return d.Blockchain.Account.Info.BalanceOther
}
