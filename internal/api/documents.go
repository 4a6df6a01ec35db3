package api

const receiptFields = `
    id
    storeName
    totalAmount
    purchaseDate
    imageUrl
    createdAt
    items {
      id
      name
      price
      quantity
    }`

// UploadReceiptMutation uploads one receipt image for extraction
const UploadReceiptMutation = `mutation UploadReceipt($file: Upload!) {
  uploadReceipt(file: $file) {` + receiptFields + `
  }
}`

// ReceiptsQuery lists every receipt
const ReceiptsQuery = `query GetReceipts {
  receipts {` + receiptFields + `
  }
}`

// FilteredReceiptsQuery lists receipts matching a server-side filter
const FilteredReceiptsQuery = `query GetReceipts($filter: ReceiptFilter) {
  receipts(filter: $filter) {` + receiptFields + `
  }
}`

// ReceiptQuery fetches one receipt by ID
const ReceiptQuery = `query GetReceipt($id: ID!) {
  receipt(id: $id) {` + receiptFields + `
  }
}`
